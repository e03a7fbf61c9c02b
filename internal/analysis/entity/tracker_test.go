package entity

import (
	"strings"
	"testing"

	"github.com/seralis/fableforge/internal/model/game"
)

func TestScanFindsNPCAfterIndicator(t *testing.T) {
	found := Scan("Inside you meet Brynn, a tired guard.", game.TrackedEntities{})

	if len(found.NPCs) != 1 || found.NPCs[0] != "Brynn" {
		t.Fatalf("unexpected NPCs: %v", found.NPCs)
	}
}

func TestScanIgnoresLowercaseAfterIndicator(t *testing.T) {
	found := Scan("You meet someone in the dark.", game.TrackedEntities{})

	if len(found.NPCs) != 0 {
		t.Fatalf("expected no NPCs, got %v", found.NPCs)
	}
}

func TestScanFindsItemAfterPossessionPhrase(t *testing.T) {
	found := Scan("You pick up a rusty lantern from the shelf.", game.TrackedEntities{})

	if len(found.Items) != 1 || found.Items[0] != "a rusty lantern" {
		t.Fatalf("unexpected items: %v", found.Items)
	}
}

func TestScanFindsLocationAfterArrivalPhrase(t *testing.T) {
	found := Scan("You arrive at the Old Mill. The wind howls.", game.TrackedEntities{})

	if len(found.Locations) != 1 || found.Locations[0] != "the Old Mill" {
		t.Fatalf("unexpected locations: %v", found.Locations)
	}
}

func TestScanIsIdempotentOverKnownEntities(t *testing.T) {
	text := "You meet Brynn and you pick up a rusty lantern as you enter the cellar."

	first := Scan(text, game.TrackedEntities{})
	known := game.TrackedEntities{
		NPCs:      first.NPCs,
		Items:     first.Items,
		Locations: first.Locations,
	}
	second := Scan(text, known)

	if !second.Empty() {
		t.Fatalf("second scan rediscovered entities: %+v", second)
	}
}

func TestScanHandlesCaseChangingUnicode(t *testing.T) {
	// Characters like U+023A grow by a byte when lowercased, so matching
	// must never carry byte offsets between cased variants of the text.
	text := strings.Repeat("Ⱥ", 10) + " you enter the Vault."

	found := Scan(text, game.TrackedEntities{})

	if len(found.Locations) != 1 || found.Locations[0] != "the Vault" {
		t.Fatalf("unexpected locations: %v", found.Locations)
	}
}

func TestScanDedupesWithinOnePass(t *testing.T) {
	found := Scan("You enter the crypt. You pause. You enter the crypt.", game.TrackedEntities{})

	if len(found.Locations) != 1 {
		t.Fatalf("expected one location, got %v", found.Locations)
	}
}
