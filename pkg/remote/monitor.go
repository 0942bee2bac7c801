package remote

import (
	"context"
	"log"
	"sync"
	"time"
)

// Pinger 可探测连通性的远端
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor 定期探测远端，只在状态变化时发出事件
//
// 初始状态视为在线，首次探测失败会发出 false。Monitor 自己不重试任何写入
type Monitor struct {
	pinger   Pinger
	interval time.Duration
	events   chan bool

	mu     sync.Mutex
	online bool
}

// NewMonitor 创建连通性监视器
func NewMonitor(p Pinger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Monitor{
		pinger:   p,
		interval: interval,
		events:   make(chan bool, 1),
		online:   true,
	}
}

// Events 状态变化通道（true 表示恢复在线）
func (m *Monitor) Events() <-chan bool {
	return m.events
}

// Online 最近一次探测结果
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Probe 探测一次，返回当前状态和是否变化
func (m *Monitor) Probe(ctx context.Context) (online, changed bool) {
	err := m.pinger.Ping(ctx)
	online = err == nil

	m.mu.Lock()
	changed = online != m.online
	m.online = online
	m.mu.Unlock()

	if changed {
		if online {
			log.Printf("[Monitor] Remote store reachable again")
		} else {
			log.Printf("[Monitor] Remote store unreachable: %v", err)
		}
	}
	return online, changed
}

// Run 立即探测一次，之后按间隔探测，直到 ctx 取消
//
// 事件通道缓冲 1 条；消费方跟不上时只保留最新状态
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if online, changed := m.Probe(ctx); changed {
			m.publish(online)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) publish(online bool) {
	for {
		select {
		case m.events <- online:
			return
		default:
		}
		// 丢弃尚未消费的旧状态
		select {
		case <-m.events:
		default:
		}
	}
}
