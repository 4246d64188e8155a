package cart

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"

	pkgerrors "github.com/haanhtuan/storefront-backend/pkg/errors"
	"github.com/haanhtuan/storefront-backend/pkg/types"
)

// ComputeLineKey derives the dedup key for a cart line: a SHA-256 over the
// canonical form of product id, free-form options, and the normalized
// attribute value id set. Two adds that differ only in key order or duplicate
// ids produce the same key and therefore merge into one line.
func ComputeLineKey(productID uuid.UUID, options types.Document, valueIDs []uuid.UUID) (string, error) {
	ids := make([]any, 0, len(valueIDs))
	for _, id := range valueIDs {
		ids = append(ids, id.String())
	}

	payload := types.Document{
		"product_id":          productID.String(),
		"options":             map[string]any(options),
		"attribute_value_ids": ids,
	}
	canonical, err := payload.Canonical()
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "canonicalize line key payload")
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
