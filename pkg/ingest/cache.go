// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

// entryCache remembers which dimension entries have already been verified
// or inserted during this Ingestor's lifetime, so processing N files of
// the same exposure costs one catalog lookup, not N.
//
// Entries are never evicted. A rollback can therefore leave the cache
// claiming an entry exists when the insert was undone; a later run against
// the same catalog through a fresh Ingestor heals this.
type entryCache struct {
	done map[string]map[string]struct{}
}

func newEntryCache() *entryCache {
	return &entryCache{done: make(map[string]map[string]struct{})}
}

func (c *entryCache) has(dim, key string) bool {
	_, ok := c.done[dim][key]
	return ok
}

func (c *entryCache) markDone(dim, key string) {
	keys, ok := c.done[dim]
	if !ok {
		keys = make(map[string]struct{})
		c.done[dim] = keys
	}
	keys[key] = struct{}{}
}
