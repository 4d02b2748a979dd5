package service

import (
	"strings"

	"tablegen-backend/internal/model"
)

// 模型名里可选的路由前缀段，以 / 和上游模型名分隔
const (
	FakeStreamMarker   = "假流式"
	FakeStreamMarkerEN = "fake-stream"
)

// ModelResolver 把请求的模型名解析为上游模型 + 送达方式。
// 纯函数：相同输入永远得到相同路由。
type ModelResolver struct {
	defaultModel string
}

func NewModelResolver(defaultModel string) *ModelResolver {
	return &ModelResolver{defaultModel: defaultModel}
}

// Resolve requested 为空时回落到配置的默认模型。
// 带假流式前缀时送达方式为 fake-stream，前缀后的剩余部分是上游模型名；
// 无前缀时按调用方是否要求流式分别取 real-stream / non-stream。
func (r *ModelResolver) Resolve(requested string, streamRequested bool) model.ModelRoute {
	requested = strings.TrimSpace(requested)

	if marker, rest, ok := strings.Cut(requested, "/"); ok {
		if marker == FakeStreamMarker || marker == FakeStreamMarkerEN {
			upstream := strings.TrimSpace(rest)
			if upstream == "" {
				upstream = r.defaultModel
			}
			return model.ModelRoute{
				UpstreamModel: upstream,
				DeliveryMode:  model.DeliveryFakeStream,
			}
		}
	}

	if requested == "" {
		requested = r.defaultModel
	}

	mode := model.DeliveryNonStream
	if streamRequested {
		mode = model.DeliveryRealStream
	}

	return model.ModelRoute{
		UpstreamModel: requested,
		DeliveryMode:  mode,
	}
}
