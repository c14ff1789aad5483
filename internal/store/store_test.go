package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"pillar/internal/entity"
	"pillar/internal/store"
)

func newWorkspace(t *testing.T) *store.Store {
	t.Helper()

	dir := t.TempDir()

	st, err := store.Init(dir, "")
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	return st
}

func Test_Init_CreatesMarkerAndConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	st, err := store.Init(dir, "work")
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if st.Config.Workspace.BaseDirectory != "work" {
		t.Errorf("BaseDirectory = %q, want work", st.Config.Workspace.BaseDirectory)
	}

	if st.Base != filepath.Join(dir, "work") {
		t.Errorf("Base = %q", st.Base)
	}

	if _, err := os.Stat(filepath.Join(dir, ".pillar", "config.json")); err != nil {
		t.Fatalf("config file missing: %v", err)
	}

	if _, err := os.Stat(st.Base); err != nil {
		t.Fatalf("base directory missing: %v", err)
	}
}

func Test_Init_Fails_When_AlreadyInitialized(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	if _, err := store.Init(dir, ""); err != nil {
		t.Fatalf("first Init() error = %v", err)
	}

	_, err := store.Init(dir, "")
	if !errors.Is(err, store.ErrAlreadyInitialized) {
		t.Fatalf("second Init() error = %v, want ErrAlreadyInitialized", err)
	}
}

func Test_Init_RejectsBaseInsideMarkerDir(t *testing.T) {
	t.Parallel()

	for _, base := range []string{".pillar", ".pillar/data"} {
		if _, err := store.Init(t.TempDir(), base); err == nil {
			t.Errorf("Init(base=%q) succeeded, want error", base)
		}
	}
}

func Test_FindRoot_WalksUpToMarker(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	if _, err := store.Init(dir, ""); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	nested := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	root, err := store.FindRoot(nested)
	if err != nil {
		t.Fatalf("FindRoot() error = %v", err)
	}

	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		t.Fatalf("EvalSymlinks() error = %v", err)
	}

	want, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("EvalSymlinks() error = %v", err)
	}

	if resolved != want {
		t.Fatalf("FindRoot() = %q, want %q", resolved, want)
	}
}

func Test_Open_Fails_When_NoWorkspace(t *testing.T) {
	t.Parallel()

	_, err := store.Open(t.TempDir())
	if !errors.Is(err, store.ErrNoWorkspace) {
		t.Fatalf("Open() error = %v, want ErrNoWorkspace", err)
	}
}

func Test_LoadConfig_ToleratesCommentsAndTrailingCommas(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	content := `{
  // hand edited
  "workspace": {
    "version": 1,
    "base_directory": "tracked",
  },
  "defaults": {
    "status": "backlog",
    "priority": "high",
  },
}`

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := store.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Workspace.BaseDirectory != "tracked" {
		t.Errorf("BaseDirectory = %q", cfg.Workspace.BaseDirectory)
	}

	status, err := cfg.DefaultStatus()
	if err != nil || status != entity.StatusBacklog {
		t.Errorf("DefaultStatus() = %q, %v", status, err)
	}

	priority, err := cfg.DefaultPriority()
	if err != nil || priority != entity.PriorityHigh {
		t.Errorf("DefaultPriority() = %q, %v", priority, err)
	}
}

func Test_CreateProject_DerivesID_FromName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		want string
	}{
		{name: "Alpha", want: "ALPH"},
		{name: "Ab", want: "AB"},
		{name: "Customer Portal Redesign", want: "CPR"},
		{name: "big data sync tool extra", want: "BDST"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			st := newWorkspace(t)

			project := &entity.Project{Name: tc.name, Status: entity.StatusBacklog, Priority: entity.PriorityMedium}
			if err := st.CreateProject(project); err != nil {
				t.Fatalf("CreateProject() error = %v", err)
			}

			if project.ID != tc.want {
				t.Fatalf("ID = %q, want %q", project.ID, tc.want)
			}

			if _, err := os.Stat(st.ProjectPath(tc.want)); err != nil {
				t.Fatalf("README.md missing: %v", err)
			}
		})
	}
}

func Test_CreateProject_SuffixesDerivedID_OnCollision(t *testing.T) {
	t.Parallel()

	st := newWorkspace(t)

	first := &entity.Project{Name: "Alpha"}
	if err := st.CreateProject(first); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	second := &entity.Project{Name: "Alphabet"}
	if err := st.CreateProject(second); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	if first.ID != "ALPH" || second.ID != "ALPH-2" {
		t.Fatalf("IDs = %q, %q, want ALPH, ALPH-2", first.ID, second.ID)
	}
}

func Test_CreateProject_Fails_When_SuppliedIDTaken(t *testing.T) {
	t.Parallel()

	st := newWorkspace(t)

	if err := st.CreateProject(&entity.Project{ID: "CORE", Name: "Core"}); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	err := st.CreateProject(&entity.Project{ID: "CORE", Name: "Core Two"})
	if !errors.Is(err, store.ErrExists) {
		t.Fatalf("CreateProject() error = %v, want ErrExists", err)
	}
}

func Test_ValidateProjectID_RejectsBadIdentifiers(t *testing.T) {
	t.Parallel()

	for _, id := range []string{"", "has space", "slash/id", strings.Repeat("A", 21), "dot.id"} {
		if err := store.ValidateProjectID(id); err == nil {
			t.Errorf("ValidateProjectID(%q) succeeded, want error", id)
		}
	}

	for _, id := range []string{"CORE", "web-2", "a_b_c", "X1"} {
		if err := store.ValidateProjectID(id); err != nil {
			t.Errorf("ValidateProjectID(%q) error = %v", id, err)
		}
	}
}

func Test_CreateIssue_NumbersSequentially_FromDirectoryScan(t *testing.T) {
	t.Parallel()

	st := newWorkspace(t)

	if err := st.CreateProject(&entity.Project{ID: "CORE", Name: "Core"}); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	first := &entity.Issue{Project: "CORE", Title: "First bug"}
	if err := st.CreateIssue(first); err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}

	second := &entity.Issue{Project: "CORE", Title: "Second bug"}
	if err := st.CreateIssue(second); err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}

	if first.Number != 1 || second.Number != 2 {
		t.Fatalf("numbers = %d, %d, want 1, 2", first.Number, second.Number)
	}

	if _, err := os.Stat(filepath.Join(st.IssuesDir("CORE"), "002-second-bug.md")); err != nil {
		t.Fatalf("issue file missing: %v", err)
	}
}

func Test_NextIssueNumber_SkipsGaps_UsesMaxPlusOne(t *testing.T) {
	t.Parallel()

	st := newWorkspace(t)

	if err := st.CreateProject(&entity.Project{ID: "CORE", Name: "Core"}); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	if err := os.MkdirAll(st.IssuesDir("CORE"), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	for _, name := range []string{"001-a.md", "007-b.md", "notes.txt", "no-number.md"} {
		path := filepath.Join(st.IssuesDir("CORE"), name)
		if err := os.WriteFile(path, []byte("---\ntitle: x\n---\n"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	number, err := st.NextIssueNumber("CORE")
	if err != nil {
		t.Fatalf("NextIssueNumber() error = %v", err)
	}

	if number != 8 {
		t.Fatalf("NextIssueNumber() = %d, want 8", number)
	}
}

func Test_IssueFileName_SlugsAndTruncatesTitle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		number int
		title  string
		want   string
	}{
		{1, "Fix Login!", "001-fix-login.md"},
		{12, "A   very -- odd__name", "012-a-very-odd-name.md"},
		{3, "###", "003-untitled.md"},
	}

	for _, tc := range cases {
		tc := tc
		if got := store.IssueFileName(tc.number, tc.title); got != tc.want {
			t.Errorf("IssueFileName(%d, %q) = %q, want %q", tc.number, tc.title, got, tc.want)
		}
	}

	if slug := store.Slug(strings.Repeat("x", 60), 40); len(slug) != 40 {
		t.Errorf("Slug length = %d, want 40", len(slug))
	}
}

func Test_UpdateIssue_RefreshesUpdated_AndKeepsUnknownKeys(t *testing.T) {
	t.Parallel()

	st := newWorkspace(t)

	if err := st.CreateProject(&entity.Project{ID: "CORE", Name: "Core"}); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	issue := &entity.Issue{Project: "CORE", Title: "Flaky test"}
	if err := st.CreateIssue(issue); err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}

	// Hand-edit the file to add a key the codec does not know about.
	path := filepath.Join(st.IssuesDir("CORE"), store.IssueFileName(1, "Flaky test"))

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	edited := strings.Replace(string(raw), "---\n", "---\nassignee: carol\n", 1)
	if err := os.WriteFile(path, []byte(edited), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	updated, _, err := st.UpdateIssue("CORE", 1, func(i *entity.Issue) error {
		i.Status = entity.StatusInProgress

		return nil
	})
	if err != nil {
		t.Fatalf("UpdateIssue() error = %v", err)
	}

	if updated.Status != entity.StatusInProgress {
		t.Errorf("Status = %q", updated.Status)
	}

	if updated.Updated.Before(updated.Created) {
		t.Errorf("Updated %v before Created %v", updated.Updated, updated.Created)
	}

	raw, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	if !strings.Contains(string(raw), "assignee: carol\n") {
		t.Fatalf("unknown key dropped by update:\n%s", raw)
	}

	if !strings.Contains(string(raw), "status: in-progress\n") {
		t.Fatalf("status not rewritten:\n%s", raw)
	}
}

func Test_UpdateProject_Fails_When_Missing(t *testing.T) {
	t.Parallel()

	st := newWorkspace(t)

	_, _, err := st.UpdateProject("NOPE", func(*entity.Project) error { return nil })
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("UpdateProject() error = %v, want ErrNotFound", err)
	}
}

func Test_CreateMilestone_Fails_When_ProjectMissing(t *testing.T) {
	t.Parallel()

	st := newWorkspace(t)

	err := st.CreateMilestone(&entity.Milestone{Project: "NOPE", Title: "v1"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("CreateMilestone() error = %v, want ErrNotFound", err)
	}
}

func Test_GetMilestone_MatchesTitleCaseInsensitively(t *testing.T) {
	t.Parallel()

	st := newWorkspace(t)

	if err := st.CreateProject(&entity.Project{ID: "CORE", Name: "Core"}); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	if err := st.CreateMilestone(&entity.Milestone{Project: "CORE", Title: "Beta Launch"}); err != nil {
		t.Fatalf("CreateMilestone() error = %v", err)
	}

	milestone, _, _, err := st.GetMilestone("CORE", "beta launch")
	if err != nil {
		t.Fatalf("GetMilestone() error = %v", err)
	}

	if milestone.Title != "Beta Launch" {
		t.Fatalf("Title = %q", milestone.Title)
	}
}

func Test_UpdateMilestone_RejectsRetitle_When_TitleTaken(t *testing.T) {
	t.Parallel()

	st := newWorkspace(t)

	if err := st.CreateProject(&entity.Project{ID: "CORE", Name: "Core"}); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	for _, title := range []string{"First", "Second"} {
		if err := st.CreateMilestone(&entity.Milestone{Project: "CORE", Title: title}); err != nil {
			t.Fatalf("CreateMilestone(%q) error = %v", title, err)
		}
	}

	_, _, err := st.UpdateMilestone("CORE", "Second", func(m *entity.Milestone) error {
		m.Title = "first"

		return nil
	})
	if !errors.Is(err, store.ErrExists) {
		t.Fatalf("UpdateMilestone() error = %v, want ErrExists", err)
	}

	// The rejected retitle must not have touched the file.
	milestone, _, _, err := st.GetMilestone("CORE", "Second")
	if err != nil {
		t.Fatalf("GetMilestone() error = %v", err)
	}

	if milestone.Title != "Second" {
		t.Fatalf("Title = %q, want Second", milestone.Title)
	}
}

func Test_UpdateMilestone_AllowsCaseOnlyRetitle_OfItself(t *testing.T) {
	t.Parallel()

	st := newWorkspace(t)

	if err := st.CreateProject(&entity.Project{ID: "CORE", Name: "Core"}); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	if err := st.CreateMilestone(&entity.Milestone{Project: "CORE", Title: "beta launch"}); err != nil {
		t.Fatalf("CreateMilestone() error = %v", err)
	}

	updated, _, err := st.UpdateMilestone("CORE", "beta launch", func(m *entity.Milestone) error {
		m.Title = "Beta Launch"

		return nil
	})
	if err != nil {
		t.Fatalf("UpdateMilestone() error = %v", err)
	}

	if updated.Title != "Beta Launch" {
		t.Fatalf("Title = %q", updated.Title)
	}
}

func Test_UpdateIssue_ConcurrentWriters_LastRenameWins_FileParseable(t *testing.T) {
	t.Parallel()

	st := newWorkspace(t)

	if err := st.CreateProject(&entity.Project{ID: "CORE", Name: "Core"}); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	if err := st.CreateIssue(&entity.Issue{Project: "CORE", Title: "Contended"}); err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}

	var wg sync.WaitGroup

	for _, priority := range []entity.Priority{entity.PriorityHigh, entity.PriorityUrgent} {
		wg.Add(1)

		go func(p entity.Priority) {
			defer wg.Done()

			_, _, err := st.UpdateIssue("CORE", 1, func(i *entity.Issue) error {
				i.Priority = p

				return nil
			})
			if err != nil {
				t.Errorf("UpdateIssue(%s) error = %v", p, err)
			}
		}(priority)
	}

	wg.Wait()

	// Whichever rename completed last wins; the file must decode cleanly
	// either way.
	raw, err := os.ReadFile(filepath.Join(st.IssuesDir("CORE"), store.IssueFileName(1, "Contended")))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	issue, warnings, err := entity.DecodeIssue(raw)
	if err != nil {
		t.Fatalf("DecodeIssue() error = %v\nfile:\n%s", err, raw)
	}

	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}

	if issue.Priority != entity.PriorityHigh && issue.Priority != entity.PriorityUrgent {
		t.Fatalf("Priority = %q, want one of the written values", issue.Priority)
	}
}

func Test_ResolveProject_UppercasesFallback(t *testing.T) {
	t.Parallel()

	st := newWorkspace(t)

	if err := st.CreateProject(&entity.Project{ID: "CORE", Name: "Core"}); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	id, err := st.ResolveProject("core")
	if err != nil || id != "CORE" {
		t.Fatalf("ResolveProject() = %q, %v", id, err)
	}

	if _, err := st.ResolveProject("missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("ResolveProject(missing) error = %v, want ErrNotFound", err)
	}
}

func Test_LoadAll_AttributesCorruptFiles_WithoutAbortingLoad(t *testing.T) {
	t.Parallel()

	st := newWorkspace(t)

	if err := st.CreateProject(&entity.Project{ID: "GOOD", Name: "Good"}); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	if err := st.CreateIssue(&entity.Issue{Project: "GOOD", Title: "Works"}); err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}

	// A project whose README has no frontmatter at all.
	badDir := filepath.Join(st.Base, "BAD")
	if err := os.MkdirAll(badDir, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	badPath := filepath.Join(badDir, "README.md")
	if err := os.WriteFile(badPath, []byte("just text\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	snap, err := st.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	if len(snap.Projects) != 1 || snap.Projects[0].ID != "GOOD" {
		t.Fatalf("Projects = %+v, want only GOOD", snap.Projects)
	}

	if len(snap.Issues) != 1 {
		t.Fatalf("Issues = %+v, want one", snap.Issues)
	}

	if len(snap.Problems) != 1 || snap.Problems[0].Path != badPath {
		t.Fatalf("Problems = %+v, want one for %s", snap.Problems, badPath)
	}
}

func Test_LoadAll_SkipsDirectoriesWithoutReadme(t *testing.T) {
	t.Parallel()

	st := newWorkspace(t)

	if err := os.MkdirAll(filepath.Join(st.Base, "scratch"), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	snap, err := st.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	if len(snap.Projects) != 0 || len(snap.Problems) != 0 {
		t.Fatalf("snapshot = %+v, want empty", snap)
	}
}
