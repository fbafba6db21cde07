package notary

import (
	fdb "github.com/fairtrace/fairtrace/pkg/db"
)

// Proof tells whether a transaction is what has been notarized.
type Proof struct {
	TransactionId string

	// hash of the transaction as it is now.
	Hash string

	// hash submitted to the consensus service.
	NotarizedHash string

	Status  fdb.NotarizationStatus
	Receipt *fdb.Receipt

	// Verified is true when the transaction is notarized and has not been changed.
	Verified bool
}

// Prove recomputes the hash of tx and compares it with the notarization.
func Prove(tx fdb.Transaction, n fdb.Notarization) (Proof, error) {
	hash, err := Hash(tx)
	if err != nil {
		return Proof{}, err
	}
	return Proof{
		TransactionId: tx.Id,
		Hash:          hash,
		NotarizedHash: n.Hash,
		Status:        n.Status,
		Receipt:       n.Receipt,
		Verified:      n.Status == fdb.NotarizationNotarized && hash == n.Hash,
	}, nil
}
