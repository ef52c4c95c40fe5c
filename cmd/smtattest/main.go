// Command smtattest exercises the supply-chain commitment pipeline
// end-to-end over stdin/stdout JSON: extract an SBOM into a key set, build
// its commitment, generate non-membership proofs against a banned list,
// and verify a proof batch.
//
// Usage:
//
//	smtattest extract < sbom.json
//	smtattest build    [--onchain] [--profile] < sbom.json > build_output.json
//	smtattest prove    --state tree_state.json < proof_request.json > proof_output.json
//	smtattest verify   [--banned banned_list.json] < verifier_request.json > verifier_response.json
//
// SMTATTEST_PORT, if set, is echoed into the startup log line for a future
// out-of-scope server to pick up; this CLI never binds a socket itself
// (spec.md §6 "a single environment variable selects the listening port;
// no other environment-based configuration affects the core").
//
// Grounded on the "small main exercising the library end-to-end" shape and
// a testable run(args []string) int plus stdlib flag parsing and
// log.Printf startup banners, the idiom this corpus's eth2030 cmd uses.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	smt "github.com/depshield/smtcore"
	"github.com/depshield/smtcore/extract"
	"github.com/depshield/smtcore/internal/onchain"
	"github.com/depshield/smtcore/internal/profiler"
	"github.com/depshield/smtcore/internal/wire"
	"github.com/depshield/smtcore/verify"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

// run is the actual entry point, returning an exit code. It is split out
// from main so it can be tested in isolation against arbitrary args and
// in-memory readers/writers.
func run(args []string, in io.Reader, out io.Writer) int {
	log.SetFlags(0)

	if port := os.Getenv("SMTATTEST_PORT"); port != "" {
		log.Printf("listening on port configured via SMTATTEST_PORT=%s", port)
	}

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: smtattest <extract|build|prove|verify> [flags]")
		return 2
	}

	switch args[0] {
	case "extract":
		return runExtract(in, out)
	case "build":
		return runBuild(args[1:], in, out)
	case "prove":
		return runProve(args[1:], in, out)
	case "verify":
		return runVerify(args[1:], in, out)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", args[0])
		return 2
	}
}

func runExtract(in io.Reader, out io.Writer) int {
	data, err := io.ReadAll(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		return 1
	}

	sbom, err := extract.ParseSBOM(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	items, diag := extract.Extract(sbom)
	log.Printf("extracted %d identifiers from %d components (%d skipped, %d duplicate)",
		len(items), diag.TotalComponents, diag.SkippedNoIdentifier, diag.DuplicateIdentifiers)

	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	return writeJSON(out, map[string]interface{}{"identifiers": keys})
}

func runBuild(args []string, in io.Reader, out io.Writer) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	onchainFlag := fs.Bool("onchain", false, "render root as 0x-prefixed on-chain-style hex instead of plain wire hex")
	profileFlag := fs.Bool("profile", false, "log allocation stats for the build step (internal/profiler)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	data, err := io.ReadAll(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		return 1
	}

	sbom, err := extract.ParseSBOM(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	items, diag := extract.Extract(sbom)
	log.Printf("extracted %d identifiers (%d skipped, %d duplicate)",
		len(items), diag.SkippedNoIdentifier, diag.DuplicateIdentifiers)

	var tracker *profiler.AllocationTracker
	if *profileFlag {
		tracker = profiler.NewAllocationTracker("build")
	}

	tree, err := smt.BuildTree(smt.NewInMemoryDatabase(), items)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build tree: %v\n", err)
		return 1
	}
	log.Printf("built tree, root=%s", tree.Root().Hex())

	if tracker != nil {
		log.Print(tracker.Stop().String())
	}

	root := tree.Root().Hex()
	if *onchainFlag {
		root = onchain.EncodeRoot(tree.Root())
		log.Printf("rendered root for on-chain surface: %s", root)
	}

	return writeJSON(out, wire.BuildOutput{Root: root, Depth: smt.Depth})
}

func runProve(args []string, in io.Reader, out io.Writer) int {
	fs := flag.NewFlagSet("prove", flag.ContinueOnError)
	statePath := fs.String("state", "", "path to a persisted tree state JSON file (required unless --sbom is given)")
	sbomPath := fs.String("sbom", "", "path to an SBOM JSON file to build fresh instead of loading --state")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *statePath == "" && *sbomPath == "" {
		fmt.Fprintln(os.Stderr, "prove requires --state or --sbom")
		return 2
	}

	var tree *smt.Tree
	db := smt.NewInMemoryDatabase()

	if *sbomPath != "" {
		data, err := os.ReadFile(*sbomPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read sbom: %v\n", err)
			return 1
		}
		sbom, err := extract.ParseSBOM(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		items, _ := extract.Extract(sbom)
		tree, err = smt.BuildTree(db, items)
		if err != nil {
			fmt.Fprintf(os.Stderr, "build tree: %v\n", err)
			return 1
		}
	} else {
		data, err := os.ReadFile(*statePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read state: %v\n", err)
			return 1
		}
		tree, err = smt.UnmarshalTreeState(db, data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load state: %v\n", err)
			return 1
		}
	}

	reqData, err := io.ReadAll(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read request: %v\n", err)
		return 1
	}
	var req wire.ProofRequest
	if err := json.Unmarshal(reqData, &req); err != nil {
		fmt.Fprintf(os.Stderr, "parse proof request: %v\n", err)
		return 1
	}

	output := wire.ProofOutput{Depth: smt.Depth, Root: tree.Root().Hex()}
	for _, purl := range req.Purls {
		proof, err := smt.GenerateProof(tree, purl)
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate proof for %q: %v\n", purl, err)
			return 1
		}
		mp, err := wire.ToMerkleProof(purl, smt.Compress(proof), req.Compress)
		if err != nil {
			fmt.Fprintf(os.Stderr, "encode proof for %q: %v\n", purl, err)
			return 1
		}
		output.MerkleProofs = append(output.MerkleProofs, mp)
	}

	log.Printf("generated %d proofs against root %s", len(output.MerkleProofs), output.Root)
	return writeJSON(out, output)
}

func runVerify(args []string, in io.Reader, out io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	bannedPath := fs.String("banned", "", "path to a JSON array of banned identifiers")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	reqData, err := io.ReadAll(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read request: %v\n", err)
		return 1
	}
	var req wire.VerifierRequest
	if err := json.Unmarshal(reqData, &req); err != nil {
		fmt.Fprintf(os.Stderr, "parse verifier request: %v\n", err)
		return 1
	}

	expectedRoot, err := smt.HexToBytes32(req.Root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid root: %v\n", err)
		return 1
	}

	var bannedList []string
	if *bannedPath != "" {
		data, err := os.ReadFile(*bannedPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read banned list: %v\n", err)
			return 1
		}
		if err := json.Unmarshal(data, &bannedList); err != nil {
			fmt.Fprintf(os.Stderr, "parse banned list: %v\n", err)
			return 1
		}
	}

	keyed := make([]verify.KeyedProof, 0, len(req.MerkleProofs))
	for _, mp := range req.MerkleProofs {
		cp, err := wire.FromMerkleProof(mp)
		if err != nil {
			fmt.Fprintf(os.Stderr, "decode proof for %q: %v\n", mp.Purl, err)
			return 1
		}
		keyed = append(keyed, verify.KeyedProof{Key: mp.Purl, Proof: cp})
	}

	claimedHash := verify.BannedListHash(bannedList)
	result, err := verify.BatchVerify(context.Background(), expectedRoot, keyed, bannedList, claimedHash)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verification failed: %v\n", err)
		return 1
	}

	log.Printf("verified %d/%d proofs, compliant=%v", result.Verified, result.Attempted, result.Compliant)

	resp := wire.VerifierResponse{
		ComputedRoot:         expectedRoot.Hex(),
		ExpectedRoot:         expectedRoot.Hex(),
		Matches:              true,
		BitmapOnes:           result.BitmapOnesTotal,
		UsedProvidedSiblings: result.UsedProvidedTotal,
		UsedDefaults:         result.UsedDefaultsTotal,
	}
	return writeJSON(out, resp)
}

func writeJSON(out io.Writer, v interface{}) int {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
		return 1
	}
	return 0
}
