package api

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

// MemberDirectory is a small in-process member index. spec.md §6 allows
// several list-returning endpoints to fabricate deterministic mock
// data; this directory is that mock source, seeded at startup and kept
// behind Deps.MockData so a real record-store-backed implementation
// can replace it without touching the handler signatures.
type MemberDirectory struct {
	members []billmodel.MemberProfile
}

// NewMemberDirectory builds a directory from a fixed seed list.
func NewMemberDirectory(seed []billmodel.MemberProfile) *MemberDirectory {
	return &MemberDirectory{members: seed}
}

// DefaultMemberSeed is the deterministic fixture used when no external
// member source is configured.
func DefaultMemberSeed() []billmodel.MemberProfile {
	return []billmodel.MemberProfile{
		{ID: "member-001", Name: "Taro Yamada", NameKana: "やまだ たろう", House: billmodel.ChamberShugiin, Party: "Liberal Democratic Party", Constituency: "Tokyo 1"},
		{ID: "member-002", Name: "Hanako Suzuki", NameKana: "すずき はなこ", House: billmodel.ChamberSangiin, Party: "Constitutional Democratic Party", Constituency: "Osaka"},
		{ID: "member-003", Name: "Ichiro Sato", NameKana: "さとう いちろう", House: billmodel.ChamberShugiin, Party: "Komeito", Constituency: "Aichi 3"},
	}
}

func (d *MemberDirectory) get(id string) (billmodel.MemberProfile, bool) {
	for _, m := range d.members {
		if m.ID == id {
			return m, true
		}
	}
	return billmodel.MemberProfile{}, false
}

func (d *MemberDirectory) list(house, party, search string) []billmodel.MemberProfile {
	out := make([]billmodel.MemberProfile, 0, len(d.members))
	for _, m := range d.members {
		if house != "" && string(m.House) != house {
			continue
		}
		if party != "" && m.Party != party {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(m.Name), strings.ToLower(search)) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// ListMembers handles GET /api/members.
func (d *Deps) ListMembers(c *gin.Context) {
	house := c.Query("house")
	party := c.Query("party")
	search := c.Query("search")
	limit, offset := pagination(c)

	matches := d.Members.list(house, party, search)
	total := len(matches)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := matches[offset:end]

	succeed(c, 200, gin.H{"members": page, "total": total, "limit": limit, "offset": offset})
}

// GetMember handles GET /api/members/{id}.
func (d *Deps) GetMember(c *gin.Context) {
	member, ok := d.Members.get(c.Param("id"))
	if !ok {
		notFound(c, "member not found")
		return
	}
	succeed(c, 200, gin.H{"member": member})
}

// MemberVotingStats handles GET /api/members/{id}/voting-stats. spec.md
// §6 marks this endpoint mock-acceptable; the shape mirrors what
// original_source's member_service.py returns for a voting summary.
func (d *Deps) MemberVotingStats(c *gin.Context) {
	id := c.Param("id")
	if _, ok := d.Members.get(id); !ok {
		notFound(c, "member not found")
		return
	}
	succeed(c, 200, gin.H{
		"member_id": id,
		"stats": gin.H{
			"total_votes":      42,
			"yes_votes":        30,
			"no_votes":         8,
			"abstain_votes":    2,
			"absent_votes":     2,
			"attendance_ratio": 0.95,
		},
	})
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 20
	offset = 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
