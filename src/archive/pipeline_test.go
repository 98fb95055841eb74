package archive

import (
	"reflect"
	"strings"
	"testing"
)

func TestFindArgsWithCeiling(t *testing.T) {
	got := strings.Join(findArgs(100), " ")
	want := ". -xdev ( -type d -print0 -o -type l -print0 -o ( -type f -size -100M -print0 ) )"
	if got != want {
		t.Fatalf("findArgs(100) = %q, want %q", got, want)
	}
}

func TestFindArgsNoCeiling(t *testing.T) {
	got := strings.Join(findArgs(0), " ")
	want := ". -xdev ( -type d -print0 -o -type l -print0 -o -type f -print0 )"
	if got != want {
		t.Fatalf("findArgs(0) = %q, want %q", got, want)
	}
}

func TestTarArgs(t *testing.T) {
	got := tarArgs("/mnt/diskrip/v1", true)
	want := []string{"-C", "/mnt/diskrip/v1", "--numeric-owner", "--acls", "--xattrs", "--xattrs-include=*", "--null", "-T", "-", "-cpf", "-"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tarArgs = %v", got)
	}

	plain := tarArgs("/mnt/diskrip/v1", false)
	for _, a := range plain {
		if a == "--xattrs" || a == "--acls" {
			t.Fatalf("xattr flags present with preservation disabled: %v", plain)
		}
	}
}

func TestCompressorArgs(t *testing.T) {
	cases := []struct {
		compressor string
		level      int
		threads    int
		want       []string
		wantErr    bool
	}{
		{"zstd", 3, 4, []string{"-q", "-T4", "-3"}, false},
		{"pigz", 6, 2, []string{"-p", "2", "-6"}, false},
		{"xz", 6, 2, nil, true},
	}
	for _, tc := range cases {
		got, err := compressorArgs(tc.compressor, tc.level, tc.threads)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tc.compressor)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tc.compressor, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s args = %v, want %v", tc.compressor, got, tc.want)
		}
	}
}

func TestExt(t *testing.T) {
	if Ext("zstd") != "zst" || Ext("pigz") != "gz" {
		t.Fatalf("Ext mapping wrong: %s %s", Ext("zstd"), Ext("pigz"))
	}
}
