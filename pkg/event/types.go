// Package event はコーチングアプリのドメインイベントを定義する。
//
// イベントは状態変更の事後通知としてメッセージブローカーへ発行される。
// 購読側の失敗は発行元の処理に影響しない。
package event

// AggregateType はイベントの対象となるエンティティの種類を表す。
type AggregateType string

const (
	// AggregateTypeUser はユーザーエンティティを表す。
	AggregateTypeUser AggregateType = "User"
	// AggregateTypeNotification は通知エンティティを表す。
	AggregateTypeNotification AggregateType = "Notification"
	// AggregateTypeMeal は食事プランエンティティを表す。
	AggregateTypeMeal AggregateType = "Meal"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypeUserRegistered はユーザーが登録されたことを表す。
	TypeUserRegistered Type = "UserRegistered"
	// TypeUserPaidChanged はユーザーの有料会員状態が変更されたことを表す。
	TypeUserPaidChanged Type = "UserPaidChanged"
	// TypeUserDeleted はユーザーが削除されたことを表す。
	TypeUserDeleted Type = "UserDeleted"

	// TypeNotificationCreated はコーチが通知を作成し配信を試みたことを表す。
	TypeNotificationCreated Type = "NotificationCreated"

	// TypeMealCreated は食事プランが作成されたことを表す。
	TypeMealCreated Type = "MealCreated"
	// TypeMealDeleted は食事プランが削除されたことを表す。
	TypeMealDeleted Type = "MealDeleted"
)

// UserRegisteredData はUserRegisteredイベントのデータ。
type UserRegisteredData struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// UserPaidChangedData はUserPaidChangedイベントのデータ。
type UserPaidChangedData struct {
	IsPaid bool `json:"is_paid"`
}

// UserDeletedData はUserDeletedイベントのデータ。
type UserDeletedData struct {
	// RemovedNotifications はユーザー削除に伴って削除された個別通知の件数。
	RemovedNotifications int64 `json:"removed_notifications"`
}

// NotificationCreatedData はNotificationCreatedイベントのデータ。
type NotificationCreatedData struct {
	// TargetType は配信対象の種類（all / paid / specific）。
	TargetType string `json:"target_type"`
	// TargetUserID はspecificの場合の配信先ユーザーID。
	TargetUserID *int64 `json:"target_user_id,omitempty"`
	// Success は送信に成功したデバイス数。
	Success int `json:"success"`
	// Failure は送信に失敗したデバイス数。
	Failure int `json:"failure"`
	// Total は送信対象となったデバイス数。
	Total int `json:"total"`
}

// MealCreatedData はMealCreatedイベントのデータ。
type MealCreatedData struct {
	Title    string `json:"title"`
	Category string `json:"category"`
}

// MealDeletedData はMealDeletedイベントのデータ。
type MealDeletedData struct {
	Title string `json:"title"`
}
