package monitor

import "context"

// Drain 持续消费 events，stop 关闭后处理完缓冲中的剩余事件再返回。
// 生产方必须在关闭 stop 之前结束投递。
func Drain[T any](ctx context.Context, events <-chan T, stop <-chan struct{}, handle func(context.Context, T)) {
	for {
		select {
		case ev := <-events:
			handle(ctx, ev)
		case <-stop:
			for {
				select {
				case ev := <-events:
					handle(ctx, ev)
				default:
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
