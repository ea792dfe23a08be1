package db

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestSearchAny(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:search_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.Exec(`CREATE TABLE items (name TEXT, code TEXT)`).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}
	rows := []map[string]any{
		{"name": "Oil Filter", "code": "OF-1"},
		{"name": "Air filter", "code": "AF_2"},
		{"name": "Brake pad", "code": "BP-100%"},
	}
	for _, row := range rows {
		if err := conn.Table("items").Create(row).Error; err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	cases := map[string]int64{
		"filter": 2,
		"FILTER": 2,
		"af_":    1,
		"100%":   1,
		"":       3,
		"zzz":    0,
	}
	for term, want := range cases {
		var got int64
		if err := SearchAny(conn.Table("items"), term, "name", "code").Count(&got).Error; err != nil {
			t.Fatalf("count %q: %v", term, err)
		}
		if got != want {
			t.Fatalf("term %q: expected %d got %d", term, want, got)
		}
	}
}
