package proof

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/BurntSushi/toml"
	json "github.com/nikkolasg/hexjson"
	"golang.org/x/crypto/blake2b"

	"github.com/drand/dlproof/common"
	"github.com/drand/dlproof/crypto"
	"github.com/drand/dlproof/key"
)

// Record binds a transcript to the statement it proves, so that it can be
// handed to a verifier as a single file.
type Record struct {
	Public *key.Identity
	Proof  *Proof
}

// Verify checks the transcript of the record against its public value.
func (r *Record) Verify() (bool, error) {
	if r.Public == nil {
		return false, errors.New("record without public key")
	}
	if err := r.Public.Valid(); err != nil {
		return false, err
	}
	return Verify(r.Public.Group, r.Public.Key, r.Proof)
}

// Canonical returns a copy of the record with the transcript reduced to the
// smallest values that satisfy the same verification equation: t modulo p, e
// modulo the order of y and s modulo the order of g. Orders that can't be
// computed fall back to p-1.
func (r *Record) Canonical() *Record {
	grp := r.Public.Group
	gOrder, ok := grp.Order()
	if !ok {
		gOrder = grp.ExponentModulus()
	}
	yOrder, ok := grp.ElementOrder(r.Public.Key)
	if !ok {
		yOrder = grp.ExponentModulus()
	}
	return &Record{
		Public: r.Public,
		Proof: &Proof{
			Commitment: new(big.Int).Mod(r.Proof.Commitment, grp.P()),
			Challenge:  new(big.Int).Mod(r.Proof.Challenge, yOrder),
			Response:   new(big.Int).Mod(r.Proof.Response, gOrder),
		},
	}
}

// Digest returns a blake2b-256 hash of the group fingerprint, the public value
// and the canonical transcript. Every encoding of a transcript that verifies
// the same way, such as s+(p-1) in place of s, has the same digest.
func (r *Record) Digest() []byte {
	c := r.Canonical()
	h, _ := blake2b.New256(nil)
	parts := [][]byte{
		c.Public.Group.Hash(),
		c.Public.Key.Bytes(),
		c.Proof.Commitment.Bytes(),
		c.Proof.Challenge.Bytes(),
		c.Proof.Response.Bytes(),
	}
	for _, b := range parts {
		_ = binary.Write(h, binary.BigEndian, uint32(len(b)))
		_, _ = h.Write(b)
	}
	return h.Sum(nil)
}

// Equal indicates if two records hold the same statement and transcript.
func (r *Record) Equal(r2 *Record) bool {
	if r == nil || r2 == nil {
		return r == r2
	}
	return r.Public.Equal(r2.Public) && r.Proof.Equal(r2.Proof)
}

// RecordTOML is the TOML-able version of a Record. Integers are hex encoded.
type RecordTOML struct {
	// Version of dlproof that wrote the record
	Version    string
	Group      string
	GroupHash  string
	Public     string
	Commitment string
	Challenge  string
	Response   string
}

// TOML returns a struct that can be marshaled using a TOML-encoding library.
func (r *Record) TOML() interface{} {
	return &RecordTOML{
		Version:    common.GetAppVersion().String(),
		Group:      r.Public.Group.Name(),
		GroupHash:  crypto.HashString(r.Public.Group),
		Public:     key.IntToString(r.Public.Key),
		Commitment: key.IntToString(r.Proof.Commitment),
		Challenge:  key.IntToString(r.Proof.Challenge),
		Response:   key.IntToString(r.Proof.Response),
	}
}

// TOMLValue returns an empty TOML-compatible interface value.
func (r *Record) TOMLValue() interface{} {
	return &RecordTOML{}
}

// FromTOML decodes the record. When r.Public.Group is already set the record
// must belong to it, otherwise the group is looked up by name.
func (r *Record) FromTOML(i interface{}) error {
	rt, ok := i.(*RecordTOML)
	if !ok {
		return errors.New("record can't decode from non RecordTOML struct")
	}
	if err := checkVersion(rt.Version); err != nil {
		return err
	}
	var values [3]*big.Int
	for n, s := range []string{rt.Commitment, rt.Challenge, rt.Response} {
		v, err := key.StringToInt(s)
		if err != nil {
			return fmt.Errorf("decoding proof: %w", err)
		}
		values[n] = v
	}
	pub := &key.Identity{}
	if r.Public != nil {
		pub.Group = r.Public.Group
	}
	err := pub.FromTOML(&key.PublicTOML{
		Group:     rt.Group,
		GroupHash: rt.GroupHash,
		Key:       rt.Public,
	})
	if err != nil {
		return err
	}
	r.Public = pub
	r.Proof = &Proof{Commitment: values[0], Challenge: values[1], Response: values[2]}
	return nil
}

// recordJSON is the JSON form of a Record. hexjson writes the byte slices as
// hex strings.
type recordJSON struct {
	Version    string
	Group      string
	GroupHash  []byte
	Public     []byte
	Commitment []byte
	Challenge  []byte
	Response   []byte
}

// Marshal provides a JSON encoding of the record.
func (r *Record) Marshal() ([]byte, error) {
	return json.Marshal(&recordJSON{
		Version:    common.GetAppVersion().String(),
		Group:      r.Public.Group.Name(),
		GroupHash:  r.Public.Group.Hash(),
		Public:     intBytes(r.Public.Key),
		Commitment: intBytes(r.Proof.Commitment),
		Challenge:  intBytes(r.Proof.Challenge),
		Response:   intBytes(r.Proof.Response),
	})
}

// intBytes is the big-endian encoding of v, with zero written as a single
// byte so that an empty field always means a missing one.
func intBytes(v *big.Int) []byte {
	if v.Sign() == 0 {
		return []byte{0}
	}
	return v.Bytes()
}

// Unmarshal decodes a record from JSON, resolving the group the same way as
// FromTOML.
func (r *Record) Unmarshal(buff []byte) error {
	var rj recordJSON
	if err := json.Unmarshal(buff, &rj); err != nil {
		return err
	}
	if err := checkVersion(rj.Version); err != nil {
		return err
	}
	for _, f := range []struct {
		name string
		v    []byte
	}{
		{"public value", rj.Public},
		{"commitment", rj.Commitment},
		{"challenge", rj.Challenge},
		{"response", rj.Response},
	} {
		if len(f.v) == 0 {
			return fmt.Errorf("%w: missing %s", common.ErrInvalidInput, f.name)
		}
	}
	grp, err := resolveGroup(r, rj.Group)
	if err != nil {
		return err
	}
	if len(rj.GroupHash) > 0 && !bytes.Equal(rj.GroupHash, grp.Hash()) {
		return fmt.Errorf("record belongs to group %s, not %s", rj.Group, grp.Name())
	}
	pub := &key.Identity{Key: new(big.Int).SetBytes(rj.Public), Group: grp}
	if err := pub.Valid(); err != nil {
		return err
	}
	r.Public = pub
	r.Proof = &Proof{
		Commitment: new(big.Int).SetBytes(rj.Commitment),
		Challenge:  new(big.Int).SetBytes(rj.Challenge),
		Response:   new(big.Int).SetBytes(rj.Response),
	}
	return nil
}

// checkVersion accepts records without a version and those written by a
// compatible one.
func checkVersion(s string) error {
	if s == "" {
		return nil
	}
	v, err := common.ParseVersion(s)
	if err != nil {
		return err
	}
	if current := common.GetAppVersion(); !current.IsCompatible(v) {
		return fmt.Errorf("record written by dlproof %s, which is incompatible with %s", v, current)
	}
	return nil
}

func resolveGroup(r *Record, name string) (*crypto.Group, error) {
	if r.Public != nil && r.Public.Group != nil {
		return r.Public.Group, nil
	}
	return crypto.GetGroupByIDWithDefault(name)
}

// Save writes the TOML form of the record to path.
func (r *Record) Save(path string) error {
	fd, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fd.Close()
	return toml.NewEncoder(fd).Encode(r.TOML())
}

// LoadRecord reads a record from a TOML file, or a JSON file when the content
// starts with '{'. A nil grp resolves the group by name from the registry.
func LoadRecord(path string, grp *crypto.Group) (*Record, error) {
	buff, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := new(Record)
	if grp != nil {
		r.Public = &key.Identity{Group: grp}
	}
	if b := bytes.TrimSpace(buff); len(b) > 0 && b[0] == '{' {
		if err := r.Unmarshal(b); err != nil {
			return nil, fmt.Errorf("reading proof %s: %w", path, err)
		}
		return r, nil
	}
	rt := r.TOMLValue()
	if _, err := toml.Decode(string(buff), rt); err != nil {
		return nil, fmt.Errorf("reading proof %s: %w", path, err)
	}
	if err := r.FromTOML(rt); err != nil {
		return nil, fmt.Errorf("reading proof %s: %w", path, err)
	}
	return r, nil
}
