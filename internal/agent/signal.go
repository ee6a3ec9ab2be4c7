package agent

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ListenCompletionsResilient — "живучая" подписка на сигналы о завершении
// аудитов. Переживает обрывы соединения с Redis: переподключается,
// логирует и продолжает. Формат payload: "requirement_id:aws_account_id:ok|failed".
func ListenCompletionsResilient(
	ctx context.Context,
	rdb *redis.Client,
	logger *zap.Logger,
	channel string,
	onSignal func(requirementID, accountID string, ok bool),
) {
	for {
		pubsub := rdb.Subscribe(ctx, channel)

		// Проверка успешности подписки
		if _, err := pubsub.Receive(ctx); err != nil {
			if ctx.Err() != nil {
				pubsub.Close()
				return
			}
			logger.Error("failed to subscribe", zap.String("chan", channel), zap.Error(err))
			time.Sleep(5 * time.Second)
			continue
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}

				// Разбор формата "requirement_id:aws_account_id:outcome"
				parts := strings.Split(msg.Payload, ":")
				if len(parts) != 3 {
					logger.Error("invalid completion signal format", zap.String("payload", msg.Payload))
					continue
				}

				onSignal(parts[0], parts[1], parts[2] == "ok")
			}
		}

		pubsub.Close()
		time.Sleep(1 * time.Second)
	}
}
