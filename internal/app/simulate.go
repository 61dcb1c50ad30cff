package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// SimulateAlert 使用给定价格走一遍告警评估与推送流程。
func (a *App) SimulateAlert(ctx context.Context, price decimal.Decimal) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	evaluator := a.newEvaluator()
	if evaluator == nil {
		return errors.New("alerting disabled")
	}

	alert, fired := evaluator.Evaluate(time.Now().UTC(), price)
	if !fired {
		a.Logger.Info().Str("price", price.String()).Msg("price does not cross any configured threshold")
		return nil
	}

	return notifier.Notify(ctx, alert)
}
