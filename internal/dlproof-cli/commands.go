package dlproof

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/drand/dlproof/crypto"
	"github.com/drand/dlproof/internal/fs"
	"github.com/drand/dlproof/internal/replay"
	"github.com/drand/dlproof/key"
	"github.com/drand/dlproof/proof"
)

// errInvalidProof is returned by the verify command after printing an
// Invalid result, so that scripts can rely on the exit status.
var errInvalidProof = errors.New("proof is invalid")

func groupListCmd(c *cli.Context) error {
	for _, name := range crypto.ListGroups() {
		grp, err := crypto.GroupFromName(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s\t%d bits\tg=%s\n", name, grp.P().BitLen(), grp.G())
	}
	return nil
}

func groupShowCmd(c *cli.Context, e *env) error {
	if c.IsSet(outFlag.Name) {
		groupPath := c.String(outFlag.Name)
		if err := crypto.SaveGroupFile(groupPath, e.group); err != nil {
			return xerrors.Errorf("dlproof: can't save group to specified file name: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "Group written to %s\n", groupPath)
		return nil
	}

	var buff bytes.Buffer
	if err := toml.NewEncoder(&buff).Encode(e.group.TOML()); err != nil {
		return xerrors.Errorf("dlproof: can't encode group to TOML: %w", err)
	}
	fmt.Fprint(c.App.Writer, buff.String())
	fmt.Fprintf(c.App.Writer, "\nHash of the group configuration: %s\n", crypto.HashString(e.group))
	switch order, ok := e.group.Order(); {
	case !ok:
		fmt.Fprintln(c.App.Writer, "Generator order: unknown (p-1 could not be factored)")
	case e.group.FullOrder():
		fmt.Fprintf(c.App.Writer, "Generator order: %s (generates the whole group)\n", order)
	default:
		fmt.Fprintf(c.App.Writer, "Generator order: %s\n", order)
	}
	return nil
}

func keygenCmd(c *cli.Context, e *env) error {
	pair, err := e.engine.GenerateKeyPair()
	if err != nil {
		return xerrors.Errorf("generating key pair: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Secret Key: %s\n", pair.Secret)
	fmt.Fprintf(c.App.Writer, "Public Key: %s\n\n", pair.Public.Key)

	var buff bytes.Buffer
	if err := toml.NewEncoder(&buff).Encode(pair.Public.TOML()); err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, buff.String())
	return nil
}

func proveCmd(c *cli.Context, e *env) error {
	secret, err := crypto.ParseInt(c.String(secretFlag.Name))
	if err != nil {
		return xerrors.Errorf("parsing secret: %w", err)
	}
	pair, err := e.engine.KeyPairFromSecret(secret)
	if err != nil {
		return xerrors.Errorf("dlproof: %w", err)
	}
	p, err := e.engine.Prove(pair)
	if err != nil {
		return xerrors.Errorf("proving: %w", err)
	}

	rec := &proof.Record{Public: pair.Public, Proof: p}
	buff, err := encodeRecord(rec, c.Bool(jsonOutFlag.Name))
	if err != nil {
		return err
	}
	if c.IsSet(outFlag.Name) {
		path := c.String(outFlag.Name)
		if err := fs.WriteSecureFile(path, buff); err != nil {
			return xerrors.Errorf("dlproof: can't save proof: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "Proof written to %s\n", path)
		return nil
	}
	_, err = c.App.Writer.Write(buff)
	return err
}

func encodeRecord(rec *proof.Record, asJSON bool) ([]byte, error) {
	if asJSON {
		buff, err := rec.Marshal()
		if err != nil {
			return nil, xerrors.Errorf("dlproof: can't encode proof to JSON: %w", err)
		}
		return append(buff, '\n'), nil
	}
	var buff bytes.Buffer
	if err := toml.NewEncoder(&buff).Encode(rec.TOML()); err != nil {
		return nil, xerrors.Errorf("dlproof: can't encode proof to TOML: %w", err)
	}
	return buff.Bytes(), nil
}

func verifyCmd(c *cli.Context, e *env) error {
	// without an explicit group, the proof file names its own
	var grp *crypto.Group
	if c.IsSet(groupFlag.Name) || c.IsSet(groupFileFlag.Name) {
		grp = e.group
	}
	rec, err := proof.LoadRecord(c.String(proofFlag.Name), grp)
	if err != nil {
		return xerrors.Errorf("dlproof: %w", err)
	}
	if c.IsSet(publicFlag.Name) {
		public, err := crypto.ParseInt(c.String(publicFlag.Name))
		if err != nil {
			return xerrors.Errorf("parsing public value: %w", err)
		}
		if public.Cmp(rec.Public.Key) != 0 {
			return xerrors.Errorf("dlproof: proof is about public value %s, not %s", rec.Public.Key, public)
		}
	}

	var ok bool
	if c.IsSet(dbFlag.Name) {
		ok, err = verifyOnce(c, e, rec)
	} else {
		ok, err = verifyRecord(e, rec)
	}
	if errors.Is(err, replay.ErrReplayed) {
		fmt.Fprintln(c.App.Writer, "Verification Result: Replayed")
		return xerrors.Errorf("dlproof: %w", err)
	}
	if err != nil {
		return xerrors.Errorf("dlproof: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Verification Result: %s\n", result(ok))
	if !ok {
		return errInvalidProof
	}
	return nil
}

func verifyRecord(e *env, rec *proof.Record) (bool, error) {
	engine := e.engine
	if !rec.Public.Group.Equal(e.group) {
		var err error
		engine, err = proof.NewEngine(rec.Public.Group,
			proof.WithLogger(e.log),
			proof.WithSource(e.src),
			proof.WithMetrics(e.metrics))
		if err != nil {
			return false, err
		}
	}
	return engine.Verify(rec.Public.Key, rec.Proof)
}

func verifyOnce(c *cli.Context, e *env, rec *proof.Record) (bool, error) {
	ctx := context.Background()
	store, err := replay.NewBoltStore(ctx, e.log, c.String(dbFlag.Name), nil)
	if err != nil {
		return false, xerrors.Errorf("opening replay database: %w", err)
	}
	guard := replay.NewGuard(e.log, store, e.metrics)
	defer func() { _ = guard.Close(ctx) }()
	return guard.Check(ctx, rec)
}

func result(ok bool) string {
	if ok {
		return "Valid"
	}
	return "Invalid"
}

// demoCmd runs the whole flow on a secret read from stdin: key generation,
// secret override, proof and verification.
func demoCmd(c *cli.Context, e *env) error {
	fmt.Fprintf(c.App.Writer, "Enter the number you want to prove (1 <= number < %s): ", e.group.P())
	secret, err := readSecret(c.App.Reader)
	if err != nil {
		fmt.Fprintf(c.App.Writer, "Invalid input: %s\n", err)
		return xerrors.Errorf("dlproof: %w", err)
	}
	if err := key.CheckSecret(e.group, secret); err != nil {
		fmt.Fprintf(c.App.Writer, "Invalid input: %s\n", err)
		return xerrors.Errorf("dlproof: %w", err)
	}

	pair, err := e.engine.GenerateKeyPair()
	if err != nil {
		return err
	}
	if err := pair.SetSecret(secret); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Secret Key: %s\n", pair.Secret)
	fmt.Fprintf(c.App.Writer, "Public Key: %s\n", pair.Public.Key)

	p, err := e.engine.Prove(pair)
	if err != nil {
		return xerrors.Errorf("proving: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Proof: %s\n", p)

	ok, err := e.engine.Verify(pair.Public.Key, p)
	if err != nil {
		return xerrors.Errorf("verifying: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Verification Result: %s\n", result(ok))
	return nil
}

func readSecret(r io.Reader) (*big.Int, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, errors.New("no number given")
	}
	return crypto.ParseInt(line)
}
