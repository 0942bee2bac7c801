package components

// TokenComponent 代币等级
// 渲染系统据此选择颜色和标签，物理系统不读取
type TokenComponent struct {
	Tier int
}
