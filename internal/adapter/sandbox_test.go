package adapter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	m "mutago.dev/pkg/mutago/internal/model"
)

func newTestSlot(t *testing.T) (*Slot, string) {
	t.Helper()

	project := t.TempDir()
	writeTestFile(t, filepath.Join(project, "go.mod"), "module example.com/p\n")
	mustMkdir(t, filepath.Join(project, "calc"))
	writeTestFile(t, filepath.Join(project, "calc", "calc.go"), "package calc\n")

	slot, err := NewSlot(context.Background(), NewLocalSourceFSAdapter(), m.Path(project))
	if err != nil {
		t.Fatalf("NewSlot() error = %v", err)
	}

	t.Cleanup(func() { _ = slot.Close(context.Background()) })

	return slot, project
}

func readString(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}

	return string(data)
}

func TestSlot_CopiesModule(t *testing.T) {
	slot, project := newTestSlot(t)

	if slot.Root() == m.Path(project) {
		t.Fatalf("Root() = project directory, want a copy")
	}

	if got := readString(t, filepath.Join(string(slot.Root()), "calc", "calc.go")); got != "package calc\n" {
		t.Fatalf("sandbox calc.go = %q", got)
	}
}

func TestSlot_InstallRestore(t *testing.T) {
	slot, project := newTestSlot(t)
	ctx := context.Background()

	target := filepath.Join(string(slot.Root()), "calc", "calc.go")
	support := filepath.Join(string(slot.Root()), "calc", "support.go")

	inst, err := slot.Install(ctx, []SandboxFile{
		{Rel: "calc/calc.go", Content: []byte("package calc // mutant\n")},
		{Rel: "calc/support.go", Content: []byte("package calc\n")},
	})
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	if got := readString(t, target); got != "package calc // mutant\n" {
		t.Fatalf("installed calc.go = %q", got)
	}

	if got := readString(t, filepath.Join(project, "calc", "calc.go")); got != "package calc\n" {
		t.Fatalf("project file changed: %q", got)
	}

	if err := inst.Restore(ctx); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if err := inst.Restore(ctx); err != nil {
		t.Fatalf("second Restore() error = %v", err)
	}

	if got := readString(t, target); got != "package calc\n" {
		t.Fatalf("restored calc.go = %q", got)
	}

	if _, err := os.Stat(support); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("created file was not removed: %v", err)
	}
}

func TestSlot_SingleInstallation(t *testing.T) {
	slot, _ := newTestSlot(t)
	ctx := context.Background()

	inst, err := slot.Install(ctx, []SandboxFile{{Rel: "calc/calc.go", Content: []byte("package calc\n")}})
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	if _, err := slot.Install(ctx, nil); !errors.Is(err, ErrSlotBusy) {
		t.Fatalf("second Install() error = %v, want ErrSlotBusy", err)
	}

	if err := slot.Close(ctx); !errors.Is(err, ErrSlotBusy) {
		t.Fatalf("Close() with installation error = %v, want ErrSlotBusy", err)
	}

	if err := inst.Restore(ctx); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	again, err := slot.Install(ctx, nil)
	if err != nil {
		t.Fatalf("Install() after Restore() error = %v", err)
	}

	_ = again.Restore(ctx)
}

func TestSlot_WithRestoresOnError(t *testing.T) {
	slot, _ := newTestSlot(t)
	ctx := context.Background()
	target := filepath.Join(string(slot.Root()), "calc", "calc.go")

	boom := errors.New("boom")

	err := slot.With(ctx, []SandboxFile{{Rel: "calc/calc.go", Content: []byte("broken")}}, func(context.Context) error {
		if got := readString(t, target); got != "broken" {
			t.Fatalf("calc.go inside With = %q", got)
		}

		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("With() error = %v, want boom", err)
	}

	if got := readString(t, target); got != "package calc\n" {
		t.Fatalf("calc.go after With = %q", got)
	}
}

func TestSlot_WithRestoresOnPanic(t *testing.T) {
	slot, _ := newTestSlot(t)
	ctx := context.Background()
	target := filepath.Join(string(slot.Root()), "calc", "calc.go")

	func() {
		defer func() { _ = recover() }()

		_ = slot.With(ctx, []SandboxFile{{Rel: "calc/calc.go", Content: []byte("broken")}}, func(context.Context) error {
			panic("mutant blew up")
		})
	}()

	if got := readString(t, target); got != "package calc\n" {
		t.Fatalf("calc.go after panic = %q", got)
	}

	inst, err := slot.Install(ctx, nil)
	if err != nil {
		t.Fatalf("Install() after panic error = %v", err)
	}

	_ = inst.Restore(ctx)
}

func TestSlot_InstallRollsBackOnFailure(t *testing.T) {
	slot, _ := newTestSlot(t)
	ctx := context.Background()
	target := filepath.Join(string(slot.Root()), "calc", "calc.go")

	// a regular file where a directory is needed makes the second write fail
	_, err := slot.Install(ctx, []SandboxFile{
		{Rel: "calc/calc.go", Content: []byte("mutant")},
		{Rel: "calc/calc.go/nested.go", Content: []byte("x")},
	})
	if err == nil {
		t.Fatalf("Install() expected error")
	}

	if got := readString(t, target); got != "package calc\n" {
		t.Fatalf("calc.go after failed install = %q", got)
	}

	inst, err := slot.Install(ctx, nil)
	if err != nil {
		t.Fatalf("Install() after rollback error = %v", err)
	}

	_ = inst.Restore(ctx)
}
