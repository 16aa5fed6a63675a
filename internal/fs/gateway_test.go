package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestReadInputRejectsEscape(t *testing.T) {
	gw, err := NewGateway(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}

	_, err = gw.ReadInput(context.Background(), "../outside.txt")
	if !errors.Is(err, ErrPathEscapesRoot) {
		t.Fatalf("expected ErrPathEscapesRoot, got %v", err)
	}
}

func TestReadInput(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "day16"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := []byte("Valve AA has flow rate=0; tunnel leads to valve AA\n")
	if err := os.WriteFile(filepath.Join(root, "day16", "example.txt"), content, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	gw, err := NewGateway(root, 0)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	got, err := gw.ReadInput(context.Background(), "./day16/example.txt")
	if err != nil {
		t.Fatalf("read input: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("unexpected content %q", got)
	}

	list, err := gw.ListInputs(context.Background())
	if err != nil {
		t.Fatalf("list inputs: %v", err)
	}
	if !reflect.DeepEqual(list, []string{"day16/example.txt"}) {
		t.Fatalf("unexpected listing %v", list)
	}
}

func TestReadInputTooLarge(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "big.txt"), make([]byte, 32), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	gw, err := NewGateway(root, 16)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	if _, err := gw.ReadInput(context.Background(), "big.txt"); !errors.Is(err, ErrInputTooLarge) {
		t.Fatalf("expected ErrInputTooLarge, got %v", err)
	}
}
