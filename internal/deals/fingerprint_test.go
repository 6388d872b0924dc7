package deals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "same deal text.", Normalize("  Same\tDeal \n\n TEXT.  "))
	assert.Equal(t, "", Normalize(" \n\t "))
}

func TestFingerprintIgnoresCaseAndWhitespace(t *testing.T) {
	want := Fingerprint("Same Deal Text.")
	for _, variant := range []string{"  same  deal text.  ", "SAME DEAL TEXT.", "same\ndeal\ttext."} {
		assert.Equal(t, want, Fingerprint(variant), variant)
	}
	assert.NotEqual(t, want, Fingerprint("Same Deal Text!"))
	assert.Len(t, want, 64)
}

func TestNormalizeTreatsSeparatorsAsWhitespace(t *testing.T) {
	assert.Equal(t, "a b c d e", Normalize("\x1ca\x1cb\x1dc\x1ed\x1fe\x1f"))
	assert.Equal(t, Fingerprint("a b"), Fingerprint("a\x1cb"))
	assert.Equal(t, Fingerprint("a b"), Fingerprint("a\u00a0\u2003b"))
}
