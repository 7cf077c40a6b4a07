// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/embersuite/emberd/chaincfg"
	"github.com/embersuite/emberd/wire"
)

// testTimeSource returns a fixed current time so future-drift rules can be
// exercised deterministically.
var testNow = time.Unix(1718100000, 0)

func testConsensus(params *chaincfg.Params) *Consensus {
	return New(&Config{
		ChainParams: params,
		TimeSource:  func() time.Time { return testNow },
	})
}

// hashFromBig returns a chainhash.Hash whose numeric interpretation equals
// the passed value.
func hashFromBig(t *testing.T, v *big.Int) chainhash.Hash {
	t.Helper()

	var hash chainhash.Hash
	bytes := v.Bytes()
	require.LessOrEqual(t, len(bytes), len(hash))

	// Hash bytes are little-endian, big.Int bytes big-endian.
	for i, b := range bytes {
		hash[len(bytes)-1-i] = b
	}
	return hash
}

// buildBlock assembles a block with a valid stored hash on top of prev.  A
// nil prev produces a genesis block.
func buildBlock(prev *wire.Block, timestamp int64,
	txns []*wire.Transaction) *wire.Block {

	header := wire.BlockHeader{
		TxRoot:     wire.CalcTxRoot(txns),
		Timestamp:  timestamp,
		Difficulty: 1,
		Version:    1,
		Miner:      "ember1miner",
	}
	if prev != nil {
		header.Index = prev.Header.Index + 1
		header.PrevHash = prev.Hash
	}
	return &wire.Block{
		Header:       header,
		Hash:         header.BlockHash(),
		Transactions: txns,
	}
}

// buildChain produces a fully valid chain of the given length with block
// interval spacing between timestamps.
func buildChain(length int, start int64) []*wire.Block {
	chain := make([]*wire.Block, 0, length)
	var prev *wire.Block
	for i := 0; i < length; i++ {
		block := buildBlock(prev, start+int64(i)*600,
			[]*wire.Transaction{})
		chain = append(chain, block)
		prev = block
	}
	return chain
}

// TestCheckProofOfWork exercises the numeric-vs-prefix boundary: the numeric
// comparison against 2^256/difficulty is authoritative, the zero-prefix
// check is only a pre-filter.
func TestCheckProofOfWork(t *testing.T) {
	// difficulty 512 yields target = 2^247, which implies two leading
	// zero hex characters.
	const difficulty = 512
	target := new(big.Int).Lsh(big.NewInt(1), 247)
	require.Equal(t, 0, CalcBlockTarget(difficulty).Cmp(target))

	tests := []struct {
		name  string
		value *big.Int
		valid bool
	}{{
		// Minimum zero count, numerically below target.
		name:  "below target passes",
		value: new(big.Int).Sub(target, big.NewInt(1)),
		valid: true,
	}, {
		// Carries the two zeros the difficulty implies yet is
		// numerically at the target, so it must fail.
		name:  "at target fails",
		value: new(big.Int).Set(target),
		valid: false,
	}, {
		// Same leading zero count as the passing case but above the
		// target: 0x00C0... >= 2^247.
		name:  "enough zeros but above target fails",
		value: new(big.Int).Lsh(big.NewInt(3), 246),
		valid: false,
	}, {
		// Fails the string-prefix pre-filter outright.
		name:  "no zero prefix fails",
		value: new(big.Int).Lsh(big.NewInt(1), 255),
		valid: false,
	}}

	for _, test := range tests {
		hash := hashFromBig(t, test.value)
		header := &wire.BlockHeader{Difficulty: difficulty}
		err := checkProofOfWork(header, &hash)
		if test.valid {
			require.NoError(t, err, test.name)
			continue
		}
		require.True(t, IsRuleErrorCode(err, ErrHighHash), test.name)
	}

	// A zero difficulty has no derivable target and fails closed.
	hash := hashFromBig(t, big.NewInt(1))
	err := checkProofOfWork(&wire.BlockHeader{Difficulty: 0}, &hash)
	require.True(t, IsRuleErrorCode(err, ErrUnexpectedDifficulty))
}

// TestCheckBlockHashAndVersion covers the stored-hash recompute rule and the
// header version allow-list.
func TestCheckBlockHashAndVersion(t *testing.T) {
	params := chaincfg.RegressionNetParams
	c := testConsensus(&params)

	chain := buildChain(2, testNow.Unix()-7200)
	block := buildBlock(chain[1], testNow.Unix()-100, []*wire.Transaction{})

	require.NoError(t, c.CheckBlock(block, chain[1], chain))

	tampered := *block
	tampered.Hash[0] ^= 0xff
	err := c.CheckBlock(&tampered, chain[1], chain)
	require.True(t, IsRuleErrorCode(err, ErrHashMismatch))

	unsupported := *block
	unsupported.Header.Version = 99
	unsupported.Hash = unsupported.Header.BlockHash()
	err = c.CheckBlock(&unsupported, chain[1], chain)
	require.True(t, IsRuleErrorCode(err, ErrUnsupportedVersion))
}

// TestCheckBlockLinkage covers previous-hash and index linkage, plus the
// height check applied when no previous block is supplied.
func TestCheckBlockLinkage(t *testing.T) {
	params := chaincfg.RegressionNetParams
	c := testConsensus(&params)

	chain := buildChain(3, testNow.Unix()-7200)

	wrongPrev := buildBlock(chain[1], testNow.Unix()-100, nil)
	err := c.CheckBlock(wrongPrev, chain[2], chain)
	require.True(t, IsRuleErrorCode(err, ErrLinkageMismatch))

	wrongIndex := buildBlock(chain[2], testNow.Unix()-100, nil)
	wrongIndex.Header.Index = 7
	wrongIndex.Hash = wrongIndex.Header.BlockHash()
	err = c.CheckBlock(wrongIndex, chain[2], chain)
	require.True(t, IsRuleErrorCode(err, ErrIndexMismatch))

	// Without a previous block the index must match the chain height.
	heightOnly := buildBlock(chain[2], testNow.Unix()-100, nil)
	require.NoError(t, c.CheckBlock(heightOnly, nil, chain))

	heightOnly.Header.Index = 9
	heightOnly.Hash = heightOnly.Header.BlockHash()
	err = c.CheckBlock(heightOnly, nil, chain)
	require.True(t, IsRuleErrorCode(err, ErrIndexMismatch))
}

// TestTimestampRules covers the three block timestamp rules: strictly after
// the previous block, within the future drift allowance, and after the
// median time past for both odd and even median windows.
func TestTimestampRules(t *testing.T) {
	params := chaincfg.RegressionNetParams
	c := testConsensus(&params)

	start := testNow.Unix() - 10*600
	chain := buildChain(10, start)
	tip := chain[len(chain)-1]

	// Equal to the previous block's timestamp is rejected.
	equal := buildBlock(tip, tip.Header.Timestamp, nil)
	err := c.CheckBlock(equal, tip, chain)
	require.True(t, IsRuleErrorCode(err, ErrTimeNotAfterPrevious))

	// Three hours ahead with a two hour drift allowance is rejected.
	future := buildBlock(tip, testNow.Add(3*time.Hour).Unix(), nil)
	err = c.CheckBlock(future, tip, chain)
	require.True(t, IsRuleErrorCode(err, ErrTimeTooNew))

	// Inside the drift allowance is accepted.
	nearFuture := buildBlock(tip, testNow.Add(time.Hour).Unix(), nil)
	require.NoError(t, c.CheckBlock(nearFuture, tip, chain))
}

// TestMedianTimePast exercises the median calculation directly with odd and
// even window sizes, including the even-count averaging rule.
func TestMedianTimePast(t *testing.T) {
	oddParams := chaincfg.RegressionNetParams
	oddParams.MedianTimeSpan = 5
	oddC := testConsensus(&oddParams)

	// Timestamps deliberately unsorted in chain order.
	times := []int64{100, 300, 200, 500, 400}
	chain := make([]*wire.Block, 0, len(times))
	var prev *wire.Block
	for _, ts := range times {
		block := buildBlock(prev, ts, nil)
		chain = append(chain, block)
		prev = block
	}

	median, ok := oddC.calcPastMedianTime(chain)
	require.True(t, ok)
	require.Equal(t, int64(300), median)

	evenParams := chaincfg.RegressionNetParams
	evenParams.MedianTimeSpan = 4
	evenC := testConsensus(&evenParams)

	// Last four timestamps are {300, 200, 500, 400}; the sorted middle
	// pair {300, 400} averages to 350.
	median, ok = evenC.calcPastMedianTime(chain)
	require.True(t, ok)
	require.Equal(t, int64(350), median)

	_, ok = evenC.calcPastMedianTime(nil)
	require.False(t, ok)
}

// TestTimestampNotPastMedian ensures a candidate after its immediate parent
// but at or below the median of the recent blocks is rejected.
func TestTimestampNotPastMedian(t *testing.T) {
	params := chaincfg.RegressionNetParams
	params.MedianTimeSpan = 11
	c := testConsensus(&params)

	// An adversarial history: the tip timestamp is pulled far below the
	// rest of the window, so the median sits well above the parent and
	// only the median rule can catch a low candidate timestamp.
	times := make([]int64, 0, 11)
	for i := 1; i <= 10; i++ {
		times = append(times, int64(i)*1000)
	}
	times = append(times, 500)

	chain := make([]*wire.Block, 0, len(times))
	var prev *wire.Block
	for _, ts := range times {
		block := buildBlock(prev, ts, nil)
		chain = append(chain, block)
		prev = block
	}
	tip := chain[len(chain)-1]

	median, ok := c.calcPastMedianTime(chain)
	require.True(t, ok)
	require.Equal(t, int64(5000), median)

	// After the parent but not past the median is rejected.
	candidate := buildBlock(tip, median, nil)
	err := c.CheckBlock(candidate, tip, chain)
	require.True(t, IsRuleErrorCode(err, ErrTimeNotPastMedian))

	// Strictly past the median is accepted.
	valid := buildBlock(tip, median+1, nil)
	require.NoError(t, c.CheckBlock(valid, tip, chain))
}

// TestTimestampGenesisAnchor ensures the genesis timestamp stands in for
// the median time past when no history is supplied.
func TestTimestampGenesisAnchor(t *testing.T) {
	params := chaincfg.RegressionNetParams
	c := testConsensus(&params)
	genesis := params.GenesisTimestamp.Unix()

	prev := buildBlock(nil, genesis-1000, nil)

	// After the parent but not past the genesis timestamp is rejected.
	atGenesis := buildBlock(prev, genesis, nil)
	err := c.CheckBlock(atGenesis, prev, nil)
	require.True(t, IsRuleErrorCode(err, ErrTimeNotPastMedian))

	pastGenesis := buildBlock(prev, genesis+1, nil)
	require.NoError(t, c.CheckBlock(pastGenesis, prev, nil))
}

type fakeBalances map[string]btcutil.Amount

func (f fakeBalances) Balance(addr string) (btcutil.Amount, error) {
	return f[addr], nil
}

// signedTx produces a normal transaction signed with a fresh key.
func signedTx(t *testing.T, sender string, nonce uint64,
	amount, fee btcutil.Amount) *wire.Transaction {

	t.Helper()

	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	tx := &wire.Transaction{
		Sender:       sender,
		Recipient:    "ember1recipient",
		Amount:       amount,
		Fee:          fee,
		Nonce:        nonce,
		Timestamp:    testNow.Unix(),
		Kind:         wire.KindNormal,
		SenderPubKey: key.PubKey().SerializeCompressed(),
	}
	txHash := tx.TxHash()
	tx.Signature = ecdsa.Sign(key, txHash[:]).Serialize()
	tx.TxID = txHash
	return tx
}

func coinbaseTx(miner string, amount btcutil.Amount) *wire.Transaction {
	return &wire.Transaction{
		Recipient: miner,
		Amount:    amount,
		Timestamp: testNow.Unix(),
		Kind:      wire.KindCoinbase,
	}
}

// TestBlockTxOrderingGuard covers the ordering rules: coinbase placement,
// duplicate ids, and per-sender nonce order with system exemptions.
func TestBlockTxOrderingGuard(t *testing.T) {
	params := chaincfg.RegressionNetParams
	c := New(&Config{
		ChainParams: &params,
		TimeSource:  func() time.Time { return testNow },
		Balances: fakeBalances{
			"ember1alice": 1e9,
			"ember1bob":   1e9,
		},
	})

	alice1 := signedTx(t, "ember1alice", 1, 1000, 10)
	alice2 := signedTx(t, "ember1alice", 2, 1000, 10)
	bob5 := signedTx(t, "ember1bob", 5, 1000, 10)

	valid := &wire.Block{
		Header: wire.BlockHeader{Index: 3},
		Transactions: []*wire.Transaction{
			coinbaseTx("ember1miner", 20),
			alice1, bob5, alice2,
		},
	}
	require.NoError(t, c.CheckBlockTransactions(valid))

	// Out-of-order nonces from a single sender are a hard rejection.
	outOfOrder := &wire.Block{
		Header: wire.BlockHeader{Index: 3},
		Transactions: []*wire.Transaction{
			coinbaseTx("ember1miner", 20),
			alice2, alice1,
		},
	}
	err := c.CheckBlockTransactions(outOfOrder)
	require.True(t, IsRuleErrorCode(err, ErrTxOrderInvalid))

	// A nonce gap is equally invalid.
	alice4 := signedTx(t, "ember1alice", 4, 1000, 10)
	gapped := &wire.Block{
		Header: wire.BlockHeader{Index: 3},
		Transactions: []*wire.Transaction{
			alice1, alice4,
		},
	}
	err = c.CheckBlockTransactions(gapped)
	require.True(t, IsRuleErrorCode(err, ErrTxOrderInvalid))

	// System transactions are exempt from nonce ordering.
	sys9 := &wire.Transaction{
		Sender: "ember1alice", Nonce: 9, Kind: wire.KindSystem,
	}
	sys3 := &wire.Transaction{
		Sender: "ember1alice", Nonce: 3, Kind: wire.KindSystem,
	}
	system := &wire.Block{
		Header:       wire.BlockHeader{Index: 3},
		Transactions: []*wire.Transaction{sys9, sys3},
	}
	require.NoError(t, c.CheckBlockTransactions(system))

	// Coinbase anywhere but position zero fails.
	misplaced := &wire.Block{
		Header: wire.BlockHeader{Index: 3},
		Transactions: []*wire.Transaction{
			alice1, coinbaseTx("ember1miner", 20),
		},
	}
	err = c.CheckBlockTransactions(misplaced)
	require.True(t, IsRuleErrorCode(err, ErrTxOrderInvalid))

	// Duplicate transaction ids fail.
	duplicated := &wire.Block{
		Header:       wire.BlockHeader{Index: 3},
		Transactions: []*wire.Transaction{bob5, bob5},
	}
	err = c.CheckBlockTransactions(duplicated)
	require.True(t, IsRuleErrorCode(err, ErrTxOrderInvalid))
}

// TestCoinbaseValue ensures the coinbase may claim at most the subsidy plus
// the fees of the other transactions in the block.
func TestCoinbaseValue(t *testing.T) {
	params := chaincfg.RegressionNetParams
	params.BaseSubsidy = 5000
	c := New(&Config{
		ChainParams: &params,
		TimeSource:  func() time.Time { return testNow },
		Balances:    fakeBalances{"ember1alice": 1e9},
	})

	tx := signedTx(t, "ember1alice", 1, 1000, 250)

	exact := &wire.Block{
		Header: wire.BlockHeader{Index: 1},
		Transactions: []*wire.Transaction{
			coinbaseTx("ember1miner", 5250), tx,
		},
	}
	require.NoError(t, c.CheckBlockTransactions(exact))

	greedy := &wire.Block{
		Header: wire.BlockHeader{Index: 1},
		Transactions: []*wire.Transaction{
			coinbaseTx("ember1miner", 5251), tx,
		},
	}
	err := c.CheckBlockTransactions(greedy)
	require.True(t, IsRuleErrorCode(err, ErrBadCoinbaseValue))
}

// TestTransactionValueSanity ensures adversarial value fields are rejected
// before any balance or fee arithmetic runs on them: a huge amount whose
// sum with the fee would wrap int64 must not slip past the balance rule,
// and negative amounts and fees must not skew the collected fee total.
func TestTransactionValueSanity(t *testing.T) {
	params := chaincfg.RegressionNetParams
	c := New(&Config{
		ChainParams: &params,
		TimeSource:  func() time.Time { return testNow },
		Balances:    fakeBalances{"ember1alice": 10},
	})

	block := func(tx *wire.Transaction) *wire.Block {
		return &wire.Block{
			Header:       wire.BlockHeader{Index: 1},
			Transactions: []*wire.Transaction{tx},
		}
	}

	// Amount+fee would wrap negative and compare below a balance of 10.
	overflow := signedTx(t, "ember1alice", 1, math.MaxInt64, 2)
	err := c.CheckBlockTransactions(block(overflow))
	require.True(t, IsRuleErrorCode(err, ErrBadTxValue))

	negativeAmount := signedTx(t, "ember1alice", 1, -1, 10)
	err = c.CheckBlockTransactions(block(negativeAmount))
	require.True(t, IsRuleErrorCode(err, ErrBadTxValue))

	negativeFee := signedTx(t, "ember1alice", 1, 1000, -5)
	err = c.CheckBlockTransactions(block(negativeFee))
	require.True(t, IsRuleErrorCode(err, ErrBadTxValue))

	aboveMax := signedTx(t, "ember1alice", 1, btcutil.MaxSatoshi, 1)
	err = c.CheckBlockTransactions(block(aboveMax))
	require.True(t, IsRuleErrorCode(err, ErrBadTxValue))

	overflowOutputs := signedTx(t, "ember1alice", 1, 1000, 10)
	overflowOutputs.Outputs = []wire.TxOutput{
		{Address: "ember1recipient", Amount: btcutil.MaxSatoshi},
		{Address: "ember1recipient", Amount: btcutil.MaxSatoshi},
	}
	err = c.CheckBlockTransactions(block(overflowOutputs))
	require.True(t, IsRuleErrorCode(err, ErrBadTxValue))

	// A sane transaction against the same balance still fails the
	// ordinary balance rule.
	sane := signedTx(t, "ember1alice", 1, 1000, 10)
	err = c.CheckBlockTransactions(block(sane))
	require.True(t, IsRuleErrorCode(err, ErrInsufficientBalance))
}

// TestTransactionSignatureChecks covers the distinct signature failure
// classes: missing, malformed, and verification failure, plus the balance
// rule for normal transactions.
func TestTransactionSignatureChecks(t *testing.T) {
	params := chaincfg.RegressionNetParams
	c := New(&Config{
		ChainParams: &params,
		TimeSource:  func() time.Time { return testNow },
		Balances:    fakeBalances{"ember1alice": 2000},
	})

	block := func(tx *wire.Transaction) *wire.Block {
		return &wire.Block{
			Header:       wire.BlockHeader{Index: 1},
			Transactions: []*wire.Transaction{tx},
		}
	}

	missing := signedTx(t, "ember1alice", 1, 1000, 10)
	missing.Signature = nil
	err := c.CheckBlockTransactions(block(missing))
	require.True(t, IsRuleErrorCode(err, ErrMissingSignature))

	malformed := signedTx(t, "ember1alice", 1, 1000, 10)
	malformed.Signature = []byte{0x01, 0x02}
	err = c.CheckBlockTransactions(block(malformed))
	require.True(t, IsRuleErrorCode(err, ErrSignatureEncoding))

	badKey := signedTx(t, "ember1alice", 1, 1000, 10)
	badKey.SenderPubKey = []byte{0xff}
	err = c.CheckBlockTransactions(block(badKey))
	require.True(t, IsRuleErrorCode(err, ErrSignatureEncoding))

	noKey := signedTx(t, "ember1alice", 1, 1000, 10)
	noKey.SenderPubKey = nil
	err = c.CheckBlockTransactions(block(noKey))
	require.True(t, IsRuleErrorCode(err, ErrSignatureCheck))

	// Tampering after signing makes the signature fail verification.
	tampered := signedTx(t, "ember1alice", 1, 1000, 10)
	tampered.Amount++
	err = c.CheckBlockTransactions(block(tampered))
	require.True(t, IsRuleErrorCode(err, ErrInvalidSignature))

	// Balance must cover amount plus fee for normal transactions.
	poor := signedTx(t, "ember1alice", 1, 1995, 10)
	err = c.CheckBlockTransactions(block(poor))
	require.True(t, IsRuleErrorCode(err, ErrInsufficientBalance))

	rich := signedTx(t, "ember1alice", 1, 1000, 10)
	require.NoError(t, c.CheckBlockTransactions(block(rich)))
}
