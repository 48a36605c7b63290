package collections

import (
	"slices"
	"testing"
)

func TestUnion_PreservesExistingAndIsIdempotent(t *testing.T) {
	existing := NewSet("com.acme.platform")
	entries := []string{"ru.yamoney", "ru.yandex.money", "ru.yoomoney"}

	once := Union(existing, entries...)
	twice := Union(once, entries...)

	want := []string{"com.acme.platform", "ru.yamoney", "ru.yandex.money", "ru.yoomoney"}
	if got := once.Values(); !slices.Equal(got, want) {
		t.Errorf("Union() = %v, want %v", got, want)
	}
	if !once.Equal(twice) {
		t.Errorf("merging twice changed the set: %v vs %v", once.Values(), twice.Values())
	}
	if existing.Len() != 1 {
		t.Errorf("Union must not modify its input, got %v", existing.Values())
	}
}

func TestUnion_NilExisting(t *testing.T) {
	got := Union[string](nil, "a", "a", "b")
	if got.Len() != 2 || !got.Contains("a") || !got.Contains("b") {
		t.Errorf("unexpected set %v", got.Values())
	}
}

func TestAppendUnique(t *testing.T) {
	tests := []struct {
		name     string
		list     []string
		entries  []string
		expected []string
	}{
		{
			name:     "empty list",
			list:     nil,
			entries:  []string{"a", "b"},
			expected: []string{"a", "b"},
		},
		{
			name:     "keeps foreign entries first",
			list:     []string{"x", "a"},
			entries:  []string{"a", "b"},
			expected: []string{"x", "a", "b"},
		},
		{
			name:     "idempotent",
			list:     []string{"a", "b"},
			entries:  []string{"a", "b"},
			expected: []string{"a", "b"},
		},
		{
			name:     "duplicates inside entries",
			list:     nil,
			entries:  []string{"b", "b", "a"},
			expected: []string{"b", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AppendUnique(tt.list, tt.entries...)
			if !slices.Equal(got, tt.expected) {
				t.Errorf("AppendUnique() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestReplace_SecondListWins(t *testing.T) {
	tasks := []string{"build", "someOtherTask"}
	tasks = Replace(tasks, "build", "publish")
	tasks = Replace(tasks, "publish", "build", "notify")

	if want := []string{"publish", "build", "notify"}; !slices.Equal(tasks, want) {
		t.Errorf("Replace() = %v, want %v", tasks, want)
	}

	canonical := []string{"a"}
	out := Replace(nil, canonical...)
	out[0] = "mutated"
	if canonical[0] != "a" {
		t.Error("Replace must copy the canonical list")
	}
}

func TestMergeExcludeDirs(t *testing.T) {
	tests := []struct {
		name     string
		existing Set[string]
		buildDir string
		names    []string
		expected []string
	}{
		{
			name:     "qualified entry already present",
			existing: NewSet("/proj/build/classes"),
			buildDir: "/proj/build",
			names:    []string{"classes", "docs"},
			expected: []string{"/proj/build/classes", "/proj/build/docs"},
		},
		{
			name:     "bare build dir is removed",
			existing: NewSet("/proj/build", "/proj/.gradle"),
			buildDir: "/proj/build",
			names:    []string{"classes", "docs"},
			expected: []string{"/proj/.gradle", "/proj/build/classes", "/proj/build/docs"},
		},
		{
			name:     "bare build dir with trailing slash",
			existing: NewSet("/proj/build/"),
			buildDir: "/proj/build",
			names:    []string{"tmp"},
			expected: []string{"/proj/build/tmp"},
		},
		{
			name:     "existing entries are cleaned",
			existing: NewSet("/proj/build/classes/", "/proj/build/./docs"),
			buildDir: "/proj/build",
			names:    []string{"classes", "docs"},
			expected: []string{"/proj/build/classes", "/proj/build/docs"},
		},
		{
			name:     "names outside or equal to the build dir are skipped",
			existing: nil,
			buildDir: "/proj/build",
			names:    []string{"..", ".", "../src", "classes/../..", "tmp/"},
			expected: []string{"/proj/build/tmp"},
		},
		{
			name:     "absolute names inside the build dir are kept",
			existing: nil,
			buildDir: "/proj/build",
			names:    []string{"/proj/build/libs", "/proj/src"},
			expected: []string{"/proj/build/libs"},
		},
		{
			name:     "nil existing",
			existing: nil,
			buildDir: "/proj/build/",
			names:    []string{"libs"},
			expected: []string{"/proj/build/libs"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeExcludeDirs(tt.existing, tt.buildDir, tt.names...)
			if !slices.Equal(got.Values(), tt.expected) {
				t.Errorf("MergeExcludeDirs() = %v, want %v", got.Values(), tt.expected)
			}
			again := MergeExcludeDirs(got, tt.buildDir, tt.names...)
			if !again.Equal(got) {
				t.Errorf("second merge changed the set: %v", again.Values())
			}
		})
	}
}

func TestIsSubdir(t *testing.T) {
	tests := []struct {
		base, dir string
		want      bool
	}{
		{"/proj/build", "/proj/build/classes", true},
		{"/proj/build", "/proj/build/a/b", true},
		{"/proj/build", "/proj/build", false},
		{"/proj/build", "/proj/build/", false},
		{"/proj/build", "/proj", false},
		{"/proj/build", "/proj/buildx", false},
		{"/proj/build", "/proj/build/..foo", true},
	}

	for _, tt := range tests {
		if got := IsSubdir(tt.base, tt.dir); got != tt.want {
			t.Errorf("IsSubdir(%q, %q) = %v, want %v", tt.base, tt.dir, got, tt.want)
		}
	}
}
