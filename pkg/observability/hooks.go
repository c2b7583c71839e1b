package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/turnstack/pkg/domain"
)

// LogHooks logs every lifecycle event at debug level, and failed turns at warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnStart: func(ctx context.Context, e *domain.TurnEvent) {
			logger.DebugContext(ctx, "turn_start",
				"conversation_id", e.ConversationID,
				"router_id", e.RouterID,
			)
		},
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "turn_end",
					"conversation_id", e.ConversationID,
					"router_id", e.RouterID,
					"err", e.Err,
				)
				return
			}
			logger.DebugContext(ctx, "turn_end",
				"conversation_id", e.ConversationID,
				"router_id", e.RouterID,
				"began", e.Began,
				"status", e.Status,
				"duration", e.Duration,
			)
		},
		OnDialogBegin: func(ctx context.Context, e *domain.DialogEvent) {
			logger.DebugContext(ctx, "dialog_begin",
				"conversation_id", e.ConversationID,
				"dialog_id", e.DialogID,
				"depth", e.Depth,
			)
		},
		OnDialogEnd: func(ctx context.Context, e *domain.DialogEvent) {
			logger.DebugContext(ctx, "dialog_end",
				"conversation_id", e.ConversationID,
				"dialog_id", e.DialogID,
				"depth", e.Depth,
				"reason", e.Reason,
			)
		},
	}
}

// Combine merges hook sets; each callback fires in the order the sets were given.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		out.OnTurnStart = chainTurn(out.OnTurnStart, h.OnTurnStart)
		out.OnTurnEnd = chainTurn(out.OnTurnEnd, h.OnTurnEnd)
		out.OnDialogBegin = chainDialog(out.OnDialogBegin, h.OnDialogBegin)
		out.OnDialogEnd = chainDialog(out.OnDialogEnd, h.OnDialogEnd)
	}
	return out
}

func chainTurn(a, b func(context.Context, *domain.TurnEvent)) func(context.Context, *domain.TurnEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.TurnEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainDialog(a, b func(context.Context, *domain.DialogEvent)) func(context.Context, *domain.DialogEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.DialogEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
