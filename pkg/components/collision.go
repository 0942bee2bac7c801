package components

// CollisionComponent 圆形碰撞体
// 用于物理系统检测代币之间、代币与容器之间的接触
type CollisionComponent struct {
	Radius float64 // 碰撞圆半径（像素）
	Static bool    // 静态刚体不受重力、不被推动（菜单装饰）
}
