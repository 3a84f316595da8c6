package rarfs

import "testing"

func TestSanitizeNameRejectsTraversal(t *testing.T) {
	cases := []string{"../etc/passwd", "a/../../b", "/etc/passwd", "..", `..\..\x`}
	for _, c := range cases {
		if _, err := SanitizeName(c); err != ErrUnsafePath {
			t.Fatalf("SanitizeName(%q) = %v, want ErrUnsafePath", c, err)
		}
	}
}

func TestSanitizeNameAcceptsNormalPaths(t *testing.T) {
	cases := map[string]string{
		"a/b/c.txt":    "a/b/c.txt",
		"./a/b":        "a/b",
		`sub\file.txt`: "sub/file.txt",
	}
	for in, want := range cases {
		got, err := SanitizeName(in)
		if err != nil {
			t.Fatalf("SanitizeName(%q): unexpected error %v", in, err)
		}
		if got != want {
			t.Fatalf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}
