// Copyright 2024 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package odb // import "github.com/go-daq/spill/odb"

import (
	"sort"

	"github.com/go-daq/spill"
	"golang.org/x/xerrors"
)

// Settings maps a board name to the ordered list of its channel names.
// The position of a name in the list is its channel number.
// Names may repeat, across and within boards.
type Settings map[string][]string

// Boards returns the board names, sorted.
func (s Settings) Boards() []string {
	boards := make([]string, 0, len(s))
	for b := range s {
		boards = append(boards, b)
	}
	sort.Strings(boards)
	return boards
}

// Name returns the name of the channel id, if it is configured.
func (s Settings) Name(id spill.ChannelID) (string, bool) {
	names := s[id.Board]
	if id.Channel < 0 || id.Channel >= len(names) {
		return "", false
	}
	return names[id.Channel], true
}

// Status is the outcome of a channel resolution.
type Status uint8

const (
	Unresolved Status = iota // no channel carries the name
	Resolved                 // exactly one channel carries the name
	Ambiguous                // more than one channel carries the name
)

func (st Status) String() string {
	switch st {
	case Unresolved:
		return "unresolved"
	case Resolved:
		return "resolved"
	case Ambiguous:
		return "ambiguous"
	}
	return "invalid"
}

// Resolution is the result of looking up a channel name.
type Resolution struct {
	Name    string
	Status  Status
	Matches []spill.ChannelID // all the channels carrying Name, board then channel order
}

// ID returns the resolved channel.
// It panics if the resolution is not Resolved.
func (r Resolution) ID() spill.ChannelID {
	if r.Status != Resolved {
		panic(xerrors.Errorf("odb: channel %q is %v", r.Name, r.Status))
	}
	return r.Matches[0]
}

// Err returns nil for a Resolved channel, and an error wrapping
// spill.ErrUnresolvedChannel or spill.ErrAmbiguousChannel otherwise.
func (r Resolution) Err() error {
	switch r.Status {
	case Resolved:
		return nil
	case Unresolved:
		return xerrors.Errorf("could not find channel %q: %w", r.Name, spill.ErrUnresolvedChannel)
	default:
		return xerrors.Errorf("channel %q configured on %v: %w", r.Name, r.Matches, spill.ErrAmbiguousChannel)
	}
}

// Lookup scans every board for channels named name.
func (s Settings) Lookup(name string) Resolution {
	res := Resolution{Name: name}
	for _, board := range s.Boards() {
		for ch, v := range s[board] {
			if v == name {
				res.Matches = append(res.Matches, spill.ChannelID{Board: board, Channel: ch})
			}
		}
	}
	switch len(res.Matches) {
	case 0:
		res.Status = Unresolved
	case 1:
		res.Status = Resolved
	default:
		res.Status = Ambiguous
	}
	return res
}

// Resolve finds the channel carrying role for the sequencer seq.
func Resolve(s Settings, seq string, role spill.Role) Resolution {
	return s.Lookup(role.ChannelName(seq))
}

// SequencerChannels holds the resolved channels of one sequencer.
type SequencerChannels struct {
	Sequencer string
	Running   spill.ChannelID
	StartDump spill.ChannelID
	StopDump  spill.ChannelID
}

// ResolveSequencer resolves the three channels of the sequencer seq.
// The first ambiguous role is reported before any unresolved one, as an
// ambiguity is fatal for the whole run while a missing channel only
// excludes the sequencer.
func ResolveSequencer(s Settings, seq string) (SequencerChannels, error) {
	var (
		chans = SequencerChannels{Sequencer: seq}
		ress  = make([]Resolution, len(spill.Roles))
	)
	for i, role := range spill.Roles {
		ress[i] = Resolve(s, seq, role)
		if ress[i].Status == Ambiguous {
			return chans, ress[i].Err()
		}
	}
	for _, res := range ress {
		if err := res.Err(); err != nil {
			return chans, err
		}
	}
	chans.Running = ress[0].ID()
	chans.StartDump = ress[1].ID()
	chans.StopDump = ress[2].ID()
	return chans, nil
}

// Unique returns the named channels whose name is carried by exactly one
// channel. Empty names are skipped.
// The second return value lists, sorted, the names carried by more than
// one channel.
func (s Settings) Unique() (map[string]spill.ChannelID, []string) {
	all := make(map[string][]spill.ChannelID)
	for _, board := range s.Boards() {
		for ch, name := range s[board] {
			if name == "" {
				continue
			}
			all[name] = append(all[name], spill.ChannelID{Board: board, Channel: ch})
		}
	}
	var (
		uniq = make(map[string]spill.ChannelID, len(all))
		dups []string
	)
	for name, ids := range all {
		if len(ids) > 1 {
			dups = append(dups, name)
			continue
		}
		uniq[name] = ids[0]
	}
	sort.Strings(dups)
	return uniq, dups
}
