package languages

import (
	"testing"

	"github.com/citetrace/citetrace/internal/scan"
	"github.com/citetrace/citetrace/pkg/refs"
)

const tsKitchen = `import { heat } from "./oven";

/**
 * Roasts a bird.
 * See 10.1234/zenodo.1234567
 */
// citetrace:ref purpose="Roasted chicken recipe" text="Great British Roasts, 2019"
export function roast(bird: string): string {
  return heat(bird);
}

export class Oven {
  // citetrace:ref purpose="Preheat" bibtex="knuth1984"
  preheat(): void {}
}

// citetrace:ref purpose="Cooking times" doi="10.5281/zenodo.1185316"
const baste = (bird: string) => bird;
`

func TestTypeScriptScanDirectivesAndJSDoc(t *testing.T) {
	file, err := NewTypeScriptScanner().Scan("kitchen.ts", []byte(tsKitchen))
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if file.Package != "kitchen" {
		t.Fatalf("expected package kitchen, got %q", file.Package)
	}

	want := []scan.Annotation{
		{Name: "roast", Line: 8, Citation: refs.Citation{Purpose: "Roasted chicken recipe", Text: "Great British Roasts, 2019"}},
		{Name: "Oven.preheat", Line: 14, Citation: refs.Citation{Purpose: "Preheat", BibKey: "knuth1984"}},
		{Name: "baste", Line: 18, Citation: refs.Citation{Purpose: "Cooking times", DOI: "10.5281/zenodo.1185316"}},
	}
	if len(file.Annotations) != len(want) {
		t.Fatalf("expected %d annotations, got %#v", len(want), file.Annotations)
	}
	for i := range want {
		if file.Annotations[i] != want[i] {
			t.Fatalf("annotation %d: expected %#v, got %#v", i, want[i], file.Annotations[i])
		}
	}

	if len(file.DocBlocks) != 1 {
		t.Fatalf("expected one doc block, got %#v", file.DocBlocks)
	}
	if doc := file.DocBlocks[0]; doc.Name != "roast" || doc.Line != 8 || doc.Text != "Roasts a bird.\nSee 10.1234/zenodo.1234567" {
		t.Fatalf("unexpected doc block %#v", doc)
	}
}

func TestJavaScriptUsesJavaScriptGrammar(t *testing.T) {
	src := "// citetrace:ref purpose=\"Mixing\" text=\"Bread Book\"\nfunction knead(dough) { return dough }\n"
	file, err := NewTypeScriptScanner().Scan("bread.js", []byte(src))
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(file.Annotations) != 1 || file.Annotations[0].Name != "knead" || file.Annotations[0].Line != 2 {
		t.Fatalf("unexpected annotations %#v", file.Annotations)
	}
}
