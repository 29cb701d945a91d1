package identifier

import (
	"crypto/sha256"
	"testing"

	"github.com/dirvine/data-chain/keys"
)

func digestOf(s string) Digest {
	return Digest(sha256.Sum256([]byte(s)))
}

func TestImmutableIdentifier(t *testing.T) {
	id := NewImmutable(digestOf("1"))

	if !(id.Kind() == KindImmutable) {
		t.Fatal("wrong kind")
	}
	if id.IsLink() {
		t.Fatal("immutable data must not be a link")
	}
	name, ok := id.Name()
	if !ok || name != digestOf("1") {
		t.Fatal("immutable data's name must be its hash")
	}
}

func TestStructuredIdentifier(t *testing.T) {
	id := NewStructured(digestOf("hash"), digestOf("name"), 3)

	if id.IsLink() {
		t.Fatal("structured data must not be a link")
	}
	name, ok := id.Name()
	if !ok || name != digestOf("name") {
		t.Fatal("structured data's name must be its fixed name field")
	}
	if id.Hash() != digestOf("hash") {
		t.Fatal("structured data's hash must be its content hash, not its name")
	}
	if id.Version() != 3 {
		t.Fatal("version mismatch")
	}
}

func TestLinkIdentifier(t *testing.T) {
	id := NewLink(digestOf("1"))

	if !id.IsLink() {
		t.Fatal("expected link")
	}
	if _, ok := id.Name(); ok {
		t.Fatal("link identifiers must have no name")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []BlockIdentifier{
		NewImmutable(digestOf("a")),
		NewStructured(digestOf("b"), digestOf("c"), 42),
		NewLink(digestOf("d")),
	}

	for _, id := range cases {
		data := id.Encode()
		decoded, err := Decode(data)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if !decoded.Equal(id) {
			t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, id)
		}
	}
}

func TestEncodingIsDeterministic(t *testing.T) {
	a := NewStructured(digestOf("x"), digestOf("y"), 7)
	b := NewStructured(digestOf("x"), digestOf("y"), 7)

	if string(a.Encode()) != string(b.Encode()) {
		t.Fatal("semantically equal identifiers must encode identically")
	}
}

func TestCreateLinkDescriptorIsPermutationInvariant(t *testing.T) {
	p1, _ := keys.GenerateKey()
	p2, _ := keys.GenerateKey()
	p3, _ := keys.GenerateKey()

	group := []keys.PublicKey{p1.Public(), p2.Public(), p3.Public()}
	reversed := []keys.PublicKey{p3.Public(), p1.Public(), p2.Public()}

	a := CreateLinkDescriptor(group)
	b := CreateLinkDescriptor(reversed)

	if !a.Equal(b) {
		t.Fatal("link descriptor must be invariant under permutation of the group")
	}
}

func TestCreateLinkDescriptorDiffersForDifferentGroups(t *testing.T) {
	p1, _ := keys.GenerateKey()
	p2, _ := keys.GenerateKey()
	p3, _ := keys.GenerateKey()

	a := CreateLinkDescriptor([]keys.PublicKey{p1.Public(), p2.Public()})
	b := CreateLinkDescriptor([]keys.PublicKey{p1.Public(), p3.Public()})

	if a.Equal(b) {
		t.Fatal("distinct groups should yield distinct link descriptors")
	}
}
