package utils

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"pump-indexer-sol/internal/logic/core"
)

// EncodeEvent 将事件编码为带类型前缀的二进制数据：
// - 前 4 字节为事件类别（uint32，小端序），下游不解包体即可路由
// - 后续为 JSON 序列化的事件体
func EncodeEvent(event *core.Event) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("EncodeEvent: marshal kind=%d: %w", event.Kind, err)
	}

	buf := make([]byte, 4, 4+len(body))
	binary.LittleEndian.PutUint32(buf[:4], uint32(event.Kind))
	return append(buf, body...), nil
}

// DecodeEvent 是 EncodeEvent 的逆操作，消费侧与测试使用
func DecodeEvent(data []byte) (*core.Event, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("DecodeEvent: data too short: %d", len(data))
	}
	kind := binary.LittleEndian.Uint32(data[:4])

	var event core.Event
	if err := json.Unmarshal(data[4:], &event); err != nil {
		return nil, fmt.Errorf("DecodeEvent: unmarshal kind=%d: %w", kind, err)
	}
	if uint32(event.Kind) != kind {
		return nil, fmt.Errorf("DecodeEvent: kind mismatch: prefix=%d, body=%d", kind, event.Kind)
	}
	return &event, nil
}
