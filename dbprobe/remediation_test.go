package dbprobe

import (
	"reflect"
	"strings"
	"testing"
)

func TestRemediation_NonEmptyForEveryPair(t *testing.T) {
	for kind := range ValidKinds {
		for _, ek := range AllErrorKinds {
			if got := Remediation(kind, ek); len(got) == 0 {
				t.Errorf("Remediation(%s, %s) is empty", kind, ek)
			}
		}
	}
}

func TestRemediation_Deterministic(t *testing.T) {
	for kind := range ValidKinds {
		for _, ek := range AllErrorKinds {
			a, b := Remediation(kind, ek), Remediation(kind, ek)
			if !reflect.DeepEqual(a, b) {
				t.Errorf("Remediation(%s, %s) differs between calls", kind, ek)
			}
		}
	}
}

func TestRemediation_ReturnsCopy(t *testing.T) {
	first := Remediation(KindPostgres, ConnectionRefused)
	first[0] = "mutated"

	second := Remediation(KindPostgres, ConnectionRefused)
	if second[0] == "mutated" {
		t.Error("mutating the returned slice changed later results")
	}
}

func TestRemediation_KindSpecific(t *testing.T) {
	pg := Remediation(KindPostgres, AuthenticationFailed)
	mongo := Remediation(KindMongo, AuthenticationFailed)
	if reflect.DeepEqual(pg, mongo) {
		t.Error("expected kind-specific authentication advice for postgres and mongo")
	}
	if !strings.Contains(strings.Join(pg, "\n"), "pg_hba.conf") {
		t.Errorf("postgres authentication advice should mention pg_hba.conf, got %v", pg)
	}
}

func TestRemediation_ExtensionUnavailable(t *testing.T) {
	got := strings.Join(Remediation(KindMongo, ExtensionUnavailable), "\n")
	if !strings.Contains(got, "dbprobe/checks") {
		t.Errorf("expected the checks import hint, got %q", got)
	}
}

func TestRemediation_EmptyKind(t *testing.T) {
	if got := Remediation(KindRedis, ""); got != nil {
		t.Errorf("Remediation for empty error kind = %v, expected nil", got)
	}
}
