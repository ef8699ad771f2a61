package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"

	"github.com/bwesterb/go-ristretto"
	"github.com/mr-tron/base58"
	"github.com/urfave/cli"

	bulletproofs "bulletproofs-go"
)

func main() {
	app := cli.NewApp()
	app.Name = "rangeproof"
	app.Usage = "create and verify bulletproof range proofs"
	app.Version = "0.1.0"
	app.Commands = []cli.Command{
		{
			Name:  "prove",
			Usage: "commit to a value and prove it lies in [0, 2^bits)",
			Flags: []cli.Flag{
				cli.Uint64Flag{Name: "value", Usage: "secret value to commit to"},
				cli.Int64Flag{Name: "bits", Value: 64, Usage: "range bit width (8, 16, 32 or 64)"},
				cli.StringFlag{Name: "blinding", Usage: "hex blinding scalar; random when omitted"},
				cli.BoolFlag{Name: "hex", Usage: "emit the proof as hex instead of base58"},
			},
			Action: proveAction,
		},
		{
			Name:  "verify",
			Usage: "verify a proof against a commitment",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "proof", Usage: "base58 or hex encoded proof"},
				cli.StringFlag{Name: "commitment", Usage: "hex encoded value commitment"},
				cli.Int64Flag{Name: "bits", Value: 64, Usage: "range bit width (8, 16, 32 or 64)"},
			},
			Action: verifyAction,
		},
		{
			Name:  "gens",
			Usage: "print the shared generators for a statement shape",
			Flags: []cli.Flag{
				cli.Int64Flag{Name: "bits", Value: 64, Usage: "range bit width"},
				cli.Int64Flag{Name: "parties", Value: 1, Usage: "party capacity"},
			},
			Action: gensAction,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func proveAction(c *cli.Context) error {
	n := c.Int64("bits")
	bpGens := bulletproofs.NewBulletproofGens(n, 1)
	pcGens := bulletproofs.NewPedersenGens()

	var blinding ristretto.Scalar
	if h := c.String("blinding"); h != "" {
		buf, err := hex.DecodeString(h)
		if err != nil || len(buf) != 32 {
			return fmt.Errorf("blinding must be 32 hex-encoded bytes")
		}
		var b32 [32]byte
		copy(b32[:], buf)
		blinding.SetBytes(&b32)
	} else {
		blinding.Rand()
	}

	V, proof, err := bulletproofs.ProveSingle(bpGens, pcGens, c.Uint64("value"), &blinding, n)
	if err != nil {
		return err
	}

	proofBytes := proof.ToBytes()
	fmt.Fprintf(c.App.Writer, "commitment: %s\n", hex.EncodeToString(V.Bytes()))
	if c.Bool("hex") {
		fmt.Fprintf(c.App.Writer, "proof: %s\n", hex.EncodeToString(proofBytes))
	} else {
		fmt.Fprintf(c.App.Writer, "proof: %s\n", base58.Encode(proofBytes))
	}
	return nil
}

func verifyAction(c *cli.Context) error {
	n := c.Int64("bits")
	bpGens := bulletproofs.NewBulletproofGens(n, 1)
	pcGens := bulletproofs.NewPedersenGens()

	proofBytes, err := decodeProof(c.String("proof"))
	if err != nil {
		return err
	}
	proof, err := bulletproofs.RangeProofFromBytes(proofBytes)
	if err != nil {
		return err
	}

	commitBytes, err := hex.DecodeString(c.String("commitment"))
	if err != nil || len(commitBytes) != 32 {
		return fmt.Errorf("commitment must be 32 hex-encoded bytes")
	}
	var V ristretto.Point
	if err := V.UnmarshalBinary(commitBytes); err != nil {
		return fmt.Errorf("commitment is not a valid group element")
	}

	if err := proof.VerifySingle(bpGens, pcGens, &V, n); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "proof verified")
	return nil
}

func gensAction(c *cli.Context) error {
	n := c.Int64("bits")
	m := c.Int64("parties")
	bpGens := bulletproofs.NewBulletproofGens(n, m)
	pcGens := bulletproofs.NewPedersenGens()

	fmt.Fprintf(c.App.Writer, "B:          %s\n", hex.EncodeToString(pcGens.B.Bytes()))
	fmt.Fprintf(c.App.Writer, "B_blinding: %s\n", hex.EncodeToString(pcGens.BBlinding.Bytes()))
	G := bpGens.G(n, m)
	H := bpGens.H(n, m)
	for i := int64(0); i < n*m; i++ {
		fmt.Fprintf(c.App.Writer, "G[%d]: %s  H[%d]: %s\n", i, hex.EncodeToString(G.Next().Bytes()), i, hex.EncodeToString(H.Next().Bytes()))
	}
	return nil
}

// decodeProof accepts hex or base58.
func decodeProof(s string) ([]byte, error) {
	if buf, err := hex.DecodeString(s); err == nil {
		return buf, nil
	}
	buf, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("proof is neither valid hex nor base58")
	}
	return buf, nil
}
