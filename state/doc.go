// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state manages the accounts trie.
// It follows the flow as bellow:
//
//	         o
//	         |
//	[ revertable state ]
//	         |
//	  [ stacked map ] -> [ journal ] -> [ playback(staging) ] -> [ updated trie ]
//	         |
//	   [ trie cache ]
//	         |
//	  [ read-only trie ]
//
// Accounts holding no balance are absent from the trie. Reading an absent
// account yields nil, and setting an empty account removes it.
package state
