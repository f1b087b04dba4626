// Package notification はコーチが作成する通知の保存・配信対象の解決・配信を扱う。
//
// Service.Create が入力を検証して通知を保存し、送信時点のユーザー一覧から
// 配信対象のデバイストークンを解決してプッシュ送信する。保存が成功すれば
// 配信の成否にかかわらず作成は成功となり、配信結果は集計値として返る。
//
// 配信対象はTargeting（All / Paid / Specific）で表す。Specificだけが
// 宛先ユーザーIDを持つため、「specificのときだけIDがある」という制約は型で保証される。
package notification
