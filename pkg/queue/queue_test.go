package queue

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestIsBusyGroupErr(t *testing.T) {
	if !isBusyGroupErr(errors.New("BUSYGROUP Consumer Group name already exists")) {
		t.Error("expected BUSYGROUP error to be recognized")
	}
	if isBusyGroupErr(errors.New("WRONGTYPE Operation against a key")) {
		t.Error("did not expect a non-BUSYGROUP error to match")
	}
	if isBusyGroupErr(nil) {
		t.Error("nil error should not match")
	}
}

func TestAssetTaskRoundTripsThroughJSON(t *testing.T) {
	task := AssetTask{AssetID: uuid.New(), RunID: uuid.New()}

	raw, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded AssetTask
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != task {
		t.Errorf("AssetTask round-trip = %+v, want %+v", decoded, task)
	}
}
