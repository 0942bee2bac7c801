package game

// BodyHandle 物理世界中刚体的句柄，0 为无效值
type BodyHandle uint64

// BodySpec 创建刚体的参数
type BodySpec struct {
	Tier   int     // 代币等级
	X, Y   float64 // 初始位置（屏幕坐标，Y 轴向下）
	Radius float64
	Static bool // 静态刚体不参与模拟（装饰、预览）
}

// BodyState 碰撞上报时刚体的只读快照
type BodyState struct {
	Handle BodyHandle
	Static bool
	X, Y   float64
	Radius float64
}

// CollisionPair 本步开始接触的一对刚体
type CollisionPair struct {
	A, B BodyState
}

// CollisionBatch 一个物理步内的全部碰撞开始事件，顺序由物理世界决定
type CollisionBatch struct {
	Pairs []CollisionPair
}

// PhysicsWorld 物理引擎协作者
//
// 核心逻辑只通过该接口创建、销毁刚体；模拟本身（积分、碰撞检测、约束求解）由实现负责。
// 步进由外部驱动，碰撞通过 Tick 消息中的 CollisionBatch 送达 Session。
type PhysicsWorld interface {
	CreateBody(spec BodySpec) BodyHandle
	DestroyBody(h BodyHandle)
	SetVelocity(h BodyHandle, vx, vy float64)
	SetAngle(h BodyHandle, angle float64)
	// Freeze 停止后续步进（失败后画面定格）
	Freeze()
	// Clear 移除全部刚体并恢复步进
	Clear()
}
