package cache

import (
	"errors"
	"testing"
)

type convertTarget struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func TestConvert(t *testing.T) {
	direct := convertTarget{ID: 1, Name: "a"}
	got, err := Convert[convertTarget](direct)
	if err != nil || got != direct {
		t.Errorf("Convert(direct) = %+v, %v", got, err)
	}

	got, err = Convert[convertTarget](map[string]any{"id": int64(2), "name": "b"})
	if err != nil {
		t.Fatalf("Convert(map) error = %v", err)
	}
	if got.ID != 2 || got.Name != "b" {
		t.Errorf("Convert(map) = %+v", got)
	}

	ptr, err := Convert[*convertTarget](nil)
	if err != nil || ptr != nil {
		t.Errorf("Convert(nil) = %v, %v", ptr, err)
	}

	_, err = Convert[convertTarget]("not an object")
	if !errors.Is(err, ErrInvalidResultType) {
		t.Errorf("Convert(string) error = %v, want ErrInvalidResultType", err)
	}
}
