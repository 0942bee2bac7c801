package components

// PositionComponent 实体位置（屏幕坐标，Y 轴向下）
type PositionComponent struct {
	X, Y  float64
	Angle float64 // 旋转角度（弧度），只影响渲染
}
