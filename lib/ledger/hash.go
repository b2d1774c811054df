package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
	"timeledger-backend/models"
	dbmodels "timeledger-backend/models/db"
)

// ComputeHash - SHA-256(employeeId | kind | timestamp | previousHash | correctsEntryId)
func ComputeHash(employeeID string, kind models.EntryKind, timestamp time.Time, previousHash, correctsEntryID string) string {
	payload := fmt.Sprintf("%s|%s|%s|%s|%s",
		employeeID,
		kind,
		timestamp.UTC().Format(time.RFC3339Nano),
		previousHash,
		correctsEntryID)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func EntryHash(rec dbmodels.LedgerEntry) string {
	return ComputeHash(rec.EmployeeID, rec.Kind, rec.Timestamp, rec.PreviousHash, rec.CorrectsID())
}
