package notification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fitcoach/coachapi/internal/store"
)

// Draft は保存前の通知。内容の有無の検証は呼び出し側が行う。
type Draft struct {
	Text      string
	ImagePath string
	ImageURL  string
	Targeting Targeting
}

// Record は保存済みの通知。作成後は変更されない。
type Record struct {
	ID        int64
	Text      string
	ImagePath string
	ImageURL  string
	Targeting Targeting
	CreatedAt time.Time
}

// TargetUserID は宛先ユーザーIDを返す。Specific以外ではnil。
func (r Record) TargetUserID() *int64 {
	if id, ok := TargetUserID(r.Targeting); ok {
		return &id
	}
	return nil
}

// Store は通知の永続化を行う。
type Store interface {
	Save(ctx context.Context, d Draft) (Record, error)
	Get(ctx context.Context, id int64) (Record, error)
	ListAll(ctx context.Context) ([]Record, error)
	ListForUser(ctx context.Context, userID int64, paid bool) ([]Record, error)
	// DeleteForUser はユーザー宛ての通知を全て削除し、削除件数を返す。
	DeleteForUser(ctx context.Context, userID int64) (int64, error)
}

// SQLStore はstore.Queriesを使うStoreの実装。
// トランザクションに束縛したQueriesを渡せばそのトランザクション内で動作する。
type SQLStore struct {
	q   *store.Queries
	now func() time.Time
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore は新しいSQLStoreを生成する。
func NewSQLStore(q *store.Queries) *SQLStore {
	return &SQLStore{q: q, now: time.Now}
}

// Save は通知を1件保存し、IDと作成日時が割り当てられたRecordを返す。
func (s *SQLStore) Save(ctx context.Context, d Draft) (Record, error) {
	if d.Targeting == nil {
		return Record{}, fmt.Errorf("配信対象が指定されていません")
	}
	var targetUserID sql.NullInt64
	if id, ok := TargetUserID(d.Targeting); ok {
		targetUserID = sql.NullInt64{Int64: id, Valid: true}
	}

	row, err := s.q.CreateNotification(ctx, store.CreateNotificationParams{
		Text:         store.NullString(d.Text),
		ImagePath:    store.NullString(d.ImagePath),
		ImageURL:     store.NullString(d.ImageURL),
		TargetType:   string(d.Targeting.Mode()),
		TargetUserID: targetUserID,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return Record{}, fmt.Errorf("通知の保存に失敗: %w", err)
	}
	return recordFromRow(row)
}

// Get はIDで通知を取得する。存在しない場合はsql.ErrNoRowsをラップして返す。
func (s *SQLStore) Get(ctx context.Context, id int64) (Record, error) {
	row, err := s.q.GetNotificationByID(ctx, id)
	if err != nil {
		return Record{}, fmt.Errorf("通知の取得に失敗: %w", err)
	}
	return recordFromRow(row)
}

// ListAll は全通知を新しい順に返す。
func (s *SQLStore) ListAll(ctx context.Context) ([]Record, error) {
	rows, err := s.q.ListNotifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("通知一覧の取得に失敗: %w", err)
	}
	return recordsFromRows(rows)
}

// ListForUser はユーザーが受け取る通知を新しい順に返す。
func (s *SQLStore) ListForUser(ctx context.Context, userID int64, paid bool) ([]Record, error) {
	rows, err := s.q.ListNotificationsForUser(ctx, store.ListNotificationsForUserParams{
		UserID:      userID,
		IncludePaid: paid,
	})
	if err != nil {
		return nil, fmt.Errorf("ユーザーの通知一覧の取得に失敗: %w", err)
	}
	return recordsFromRows(rows)
}

// DeleteForUser はユーザー宛てのspecific通知を削除する。
func (s *SQLStore) DeleteForUser(ctx context.Context, userID int64) (int64, error) {
	n, err := s.q.DeleteNotificationsByTargetUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("ユーザー宛て通知の削除に失敗: %w", err)
	}
	return n, nil
}

func recordFromRow(row store.Notification) (Record, error) {
	targeting, err := targetingFromRow(row.TargetType, row.TargetUserID)
	if err != nil {
		return Record{}, fmt.Errorf("通知 %d: %w", row.ID, err)
	}
	return Record{
		ID:        row.ID,
		Text:      row.Text.String,
		ImagePath: row.ImagePath.String,
		ImageURL:  row.ImageURL.String,
		Targeting: targeting,
		CreatedAt: row.CreatedAt,
	}, nil
}

func recordsFromRows(rows []store.Notification) ([]Record, error) {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		r, err := recordFromRow(row)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}
