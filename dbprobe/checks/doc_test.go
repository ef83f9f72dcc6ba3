package checks

import (
	"testing"

	"github.com/BigKAA/dbprobe/dbprobe"
)

func TestAllKindsRegistered(t *testing.T) {
	registered := dbprobe.RegisteredKinds()
	for kind := range dbprobe.ValidKinds {
		if !registered[kind] {
			t.Errorf("no transport registered for kind %q", kind)
		}
	}
}
