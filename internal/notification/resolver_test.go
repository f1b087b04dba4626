package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectTokens(t *testing.T) {
	t.Parallel()

	members := []Member{
		{UserID: 1, IsPaid: true, DeviceToken: "T1"},
		{UserID: 2, IsPaid: false, DeviceToken: "T2"},
		{UserID: 3, IsPaid: true},
		{UserID: 4, IsPaid: true, DeviceToken: "T1"},
	}

	tests := []struct {
		name      string
		targeting Targeting
		want      []string
	}{
		{name: "allはトークンを持つ全員", targeting: All{}, want: []string{"T1", "T2"}},
		{name: "paidは有料会員のみ", targeting: Paid{}, want: []string{"T1"}},
		{name: "specificは該当ユーザーのトークン", targeting: Specific{UserID: 2}, want: []string{"T2"}},
		{name: "specificでトークンが無ければ空", targeting: Specific{UserID: 3}, want: []string{}},
		{name: "specificで存在しないユーザーは空", targeting: Specific{UserID: 99}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SelectTokens(tt.targeting, members))
		})
	}
}

func TestSelectTokens_PaidIsSubsetOfAll(t *testing.T) {
	t.Parallel()

	members := []Member{
		{UserID: 1, IsPaid: true, DeviceToken: "a"},
		{UserID: 2, DeviceToken: "b"},
		{UserID: 3, IsPaid: true, DeviceToken: "c"},
		{UserID: 4, IsPaid: true},
		{UserID: 5},
	}
	all := SelectTokens(All{}, members)
	for _, tok := range SelectTokens(Paid{}, members) {
		assert.Contains(t, all, tok)
	}
}

func TestParseTargeting(t *testing.T) {
	t.Parallel()

	id := int64(7)

	t.Run("3種類の配信対象を解釈できること", func(t *testing.T) {
		t.Parallel()

		got, err := ParseTargeting("all", &id)
		assert.NoError(t, err)
		assert.Equal(t, All{}, got, "all ではtarget_user_idを無視する")

		got, err = ParseTargeting("paid", nil)
		assert.NoError(t, err)
		assert.Equal(t, Paid{}, got)

		got, err = ParseTargeting("specific", &id)
		assert.NoError(t, err)
		assert.Equal(t, Specific{UserID: 7}, got)
	})

	t.Run("不正な種類やIDの欠落は検証エラーになること", func(t *testing.T) {
		t.Parallel()

		for _, mode := range []string{"", "everyone", "ALL"} {
			_, err := ParseTargeting(mode, nil)
			assert.Error(t, err, mode)
		}
		_, err := ParseTargeting("specific", nil)
		assert.Error(t, err)
	})
}
