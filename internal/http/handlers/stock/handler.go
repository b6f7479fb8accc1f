package stock

import "github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/provider"

// Handler 库存引擎接口处理器入口
// 说明：面向后台与同域系统的内部 API，不做终端用户鉴权。
type Handler struct {
	*provider.Container
}

// New 创建库存处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
