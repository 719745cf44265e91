// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"fmt"
	"sync"

	"github.com/luxfi/ids"
)

// Bank is the set of tokens known to the system, keyed by asset ID.
type Bank struct {
	lock   sync.RWMutex
	tokens map[ids.ShortID]Token
	order  []ids.ShortID
}

func NewBank() *Bank {
	return &Bank{
		tokens: make(map[ids.ShortID]Token),
	}
}

// Register adds tok to the bank.
func (b *Bank) Register(tok Token) error {
	if err := tok.Asset().Verify(); err != nil {
		return err
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	id := tok.Asset().ID
	if _, ok := b.tokens[id]; ok {
		return fmt.Errorf("%w: %s", ErrAssetExists, id)
	}
	b.tokens[id] = tok
	b.order = append(b.order, id)
	return nil
}

// Token returns the token for assetID.
func (b *Bank) Token(assetID ids.ShortID) (Token, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	tok, ok := b.tokens[assetID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, assetID)
	}
	return tok, nil
}

// Tokens returns every registered token in registration order.
func (b *Bank) Tokens() []Token {
	b.lock.RLock()
	defer b.lock.RUnlock()

	out := make([]Token, len(b.order))
	for i, id := range b.order {
		out[i] = b.tokens[id]
	}
	return out
}
