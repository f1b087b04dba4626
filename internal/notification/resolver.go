package notification

import (
	"context"
	"fmt"

	"github.com/fitcoach/coachapi/internal/store"
)

// Roster は配信対象の解決に使うユーザー一覧の読み取り口。*store.Queriesが満たす。
type Roster interface {
	GetUserByID(ctx context.Context, id int64) (store.User, error)
	ListUsersWithDeviceToken(ctx context.Context) ([]store.User, error)
	ListPaidUsersWithDeviceToken(ctx context.Context) ([]store.User, error)
}

// Member は配信対象の判定に必要なユーザーの属性。
type Member struct {
	UserID      int64
	IsPaid      bool
	DeviceToken string
}

func memberFromUser(u store.User) Member {
	return Member{
		UserID:      u.ID,
		IsPaid:      u.IsPaid != 0,
		DeviceToken: u.DeviceToken.String,
	}
}

// SelectTokens はmembersのうちtargetingに該当し、トークンを持つユーザーのトークンを返す。
// 同じトークンは1度だけ含め、順序はmembersの順を保つ。
func SelectTokens(targeting Targeting, members []Member) []string {
	seen := make(map[string]struct{}, len(members))
	tokens := make([]string, 0, len(members))
	for _, m := range members {
		if m.DeviceToken == "" || !matches(targeting, m) {
			continue
		}
		if _, dup := seen[m.DeviceToken]; dup {
			continue
		}
		seen[m.DeviceToken] = struct{}{}
		tokens = append(tokens, m.DeviceToken)
	}
	return tokens
}

func matches(targeting Targeting, m Member) bool {
	switch t := targeting.(type) {
	case All:
		return true
	case Paid:
		return m.IsPaid
	case Specific:
		return m.UserID == t.UserID
	default:
		return false
	}
}

// Resolver は送信時点のユーザー一覧から配信先トークンを求める。読み取りのみ行う。
type Resolver struct {
	roster Roster
}

// NewResolver は新しいResolverを生成する。
func NewResolver(roster Roster) *Resolver {
	return &Resolver{roster: roster}
}

// Resolve はtargetingに該当するデバイストークンを返す。
// Specificの宛先ユーザーが存在しない、またはトークンを持たない場合は空を返す。
func (r *Resolver) Resolve(ctx context.Context, targeting Targeting) ([]string, error) {
	var users []store.User
	switch t := targeting.(type) {
	case All:
		list, err := r.roster.ListUsersWithDeviceToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("トークン保持ユーザーの取得に失敗: %w", err)
		}
		users = list
	case Paid:
		list, err := r.roster.ListPaidUsersWithDeviceToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("有料会員の取得に失敗: %w", err)
		}
		users = list
	case Specific:
		u, err := r.roster.GetUserByID(ctx, t.UserID)
		if store.IsNotFound(err) {
			return []string{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("宛先ユーザーの取得に失敗: %w", err)
		}
		users = []store.User{u}
	default:
		return nil, fmt.Errorf("不明な配信対象です: %T", targeting)
	}

	members := make([]Member, 0, len(users))
	for _, u := range users {
		members = append(members, memberFromUser(u))
	}
	return SelectTokens(targeting, members), nil
}
