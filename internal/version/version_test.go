package version

import "testing"

func TestString(t *testing.T) {
	oldVersion, oldSHA := Version, GitSHA
	t.Cleanup(func() { Version, GitSHA = oldVersion, oldSHA })

	Version, GitSHA = "v1.2.3", "abc1234"
	if got, want := String(), "trackfind v1.2.3 (abc1234, built unknown)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
