package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMSender はFirebase Cloud Messagingで通知を送るSender。
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender はサービスアカウントJSONからFCMSenderを生成する。
func NewFCMSender(ctx context.Context, credentialsFile string) (*FCMSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("Firebaseアプリの初期化に失敗: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("FCMクライアントの生成に失敗: %w", err)
	}
	return &FCMSender{client: client}, nil
}

// Send は1つのデバイスへ通知を送る。
func (s *FCMSender) Send(ctx context.Context, msg *Message) error {
	_, err := s.client.Send(ctx, toFCMMessage(msg))
	return err
}

// toFCMMessage はMessageをFCMのメッセージに変換する。
// iOS向けに通知音とバッジ数1を付与する。
func toFCMMessage(msg *Message) *messaging.Message {
	badge := 1
	return &messaging.Message{
		Token: msg.Token,
		Notification: &messaging.Notification{
			Title:    msg.Title,
			Body:     msg.Body,
			ImageURL: msg.ImageURL,
		},
		Data: msg.Data,
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
					Badge: &badge,
				},
			},
		},
	}
}

// NewSender は認証情報ファイルが存在すればFCMSenderを返す。
// パスが空、ファイルが無い、初期化に失敗した場合はnilを返し、配信は無効になる。
func NewSender(ctx context.Context, credentialsFile string, log *slog.Logger) Sender {
	if credentialsFile == "" {
		log.Warn("プッシュ通知の認証情報が未設定です。通知は保存のみ行われます")
		return nil
	}
	if _, err := os.Stat(credentialsFile); errors.Is(err, os.ErrNotExist) {
		log.Warn("プッシュ通知の認証情報ファイルが見つかりません", slog.String("path", credentialsFile))
		return nil
	}
	sender, err := NewFCMSender(ctx, credentialsFile)
	if err != nil {
		log.Error("FCMの初期化に失敗しました。通知は保存のみ行われます", slog.Any("error", err))
		return nil
	}
	log.Info("FCMを初期化しました")
	return sender
}
