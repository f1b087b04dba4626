package notification

import (
	"database/sql"
	"fmt"

	"github.com/fitcoach/coachapi/internal/apperr"
)

// Mode は配信対象の種類を表す文字列。APIとDBで共通。
type Mode string

const (
	// ModeAll はデバイストークンを持つ全ユーザー。
	ModeAll Mode = "all"
	// ModePaid はデバイストークンを持つ有料会員。
	ModePaid Mode = "paid"
	// ModeSpecific は特定の1ユーザー。
	ModeSpecific Mode = "specific"
)

// Targeting は通知の配信対象。All, Paid, Specific のいずれか。
type Targeting interface {
	Mode() Mode
	isTargeting()
}

// All は全ユーザー向けの配信対象。
type All struct{}

// Paid は有料会員向けの配信対象。
type Paid struct{}

// Specific は特定ユーザー向けの配信対象。
type Specific struct {
	UserID int64
}

func (All) Mode() Mode      { return ModeAll }
func (Paid) Mode() Mode     { return ModePaid }
func (Specific) Mode() Mode { return ModeSpecific }

func (All) isTargeting()      {}
func (Paid) isTargeting()     {}
func (Specific) isTargeting() {}

// TargetUserID はSpecificの場合に宛先ユーザーIDを返す。
func TargetUserID(t Targeting) (int64, bool) {
	s, ok := t.(Specific)
	return s.UserID, ok
}

// ParseTargeting はAPIの入力値からTargetingを組み立てる。
// specificの場合はtargetUserIDが必須。それ以外ではtargetUserIDは無視する。
func ParseTargeting(mode string, targetUserID *int64) (Targeting, error) {
	switch Mode(mode) {
	case ModeAll:
		return All{}, nil
	case ModePaid:
		return Paid{}, nil
	case ModeSpecific:
		if targetUserID == nil {
			return nil, apperr.Validation("target_user_id is required when target_type is specific")
		}
		return Specific{UserID: *targetUserID}, nil
	default:
		return nil, apperr.Validation("target_type must be one of: all, paid, specific")
	}
}

// targetingFromRow はDBの行からTargetingを復元する。
func targetingFromRow(targetType string, targetUserID sql.NullInt64) (Targeting, error) {
	switch Mode(targetType) {
	case ModeAll:
		return All{}, nil
	case ModePaid:
		return Paid{}, nil
	case ModeSpecific:
		if !targetUserID.Valid {
			return nil, fmt.Errorf("specific通知に宛先ユーザーがありません")
		}
		return Specific{UserID: targetUserID.Int64}, nil
	default:
		return nil, fmt.Errorf("不明な配信対象です: %q", targetType)
	}
}
