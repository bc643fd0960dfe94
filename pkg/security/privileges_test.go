package security

import (
	"errors"
	"os"
	"runtime"
	"testing"
)

func TestIsAdminUnix(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping Unix test on Windows")
	}

	want := os.Geteuid() == 0
	if got := IsAdmin(); got != want {
		t.Errorf("IsAdmin() = %v, want %v (euid=%d)", got, want, os.Geteuid())
	}
}

func TestCheckPrivileges(t *testing.T) {
	if err := CheckPrivileges(true); err != nil {
		t.Errorf("CheckPrivileges(true) = %v, want nil", err)
	}

	err := CheckPrivileges(false)
	if IsAdmin() {
		if !errors.Is(err, ErrElevated) {
			t.Errorf("CheckPrivileges(false) as admin = %v, want ErrElevated", err)
		}
	} else if err != nil {
		t.Errorf("CheckPrivileges(false) = %v, want nil", err)
	}
}

func TestGetCurrentUser(t *testing.T) {
	if GetCurrentUser() == "" {
		t.Error("GetCurrentUser() returned empty string")
	}
}
