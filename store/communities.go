package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"simpus/models"

	"github.com/google/uuid"
)

// ==========================================
// COMMUNITIES
// ==========================================

const communityColumns = "c.id, c.name, c.description, c.category, c.created_by, c.is_public, c.max_members, c.rules, c.tags, c.created_at"

func scanCommunity(row interface{ Scan(...any) error }) (*models.Community, error) {
	var c models.Community
	var rules, tags sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Category, &c.CreatedBy, &c.IsPublic,
		&c.MaxMembers, &rules, &tags, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.Rules = decodeList(rules)
	c.Tags = decodeList(tags)
	c.Members = []models.UserRef{}
	c.Moderators = []models.UserRef{}
	return &c, nil
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	return string(b), err
}

func decodeList(s sql.NullString) []string {
	list := []string{}
	if s.Valid && s.String != "" {
		_ = json.Unmarshal([]byte(s.String), &list)
	}
	return list
}

// CreateCommunity stores a new community; the creator becomes its first
// member and moderator.
func (s *Store) CreateCommunity(ctx context.Context, userID string, req models.CommunityRequest) (*models.Community, error) {
	rules, err := encodeList(req.Rules)
	if err != nil {
		return nil, err
	}
	tags, err := encodeList(req.Tags)
	if err != nil {
		return nil, err
	}

	now := s.now()
	c := &models.Community{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		CreatedBy:   userID,
		IsPublic:    true,
		MaxMembers:  req.MaxMembers,
		CreatedAt:   now,
	}
	if req.IsPublic != nil {
		c.IsPublic = *req.IsPublic
	}
	if c.MaxMembers <= 0 {
		c.MaxMembers = 100
	}

	err = s.withTx(ctx, func(h handle) error {
		_, err := h.exec(ctx, `
			INSERT INTO communities (id, name, description, category, created_by, is_public, max_members, rules, tags, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Description, c.Category, c.CreatedBy, c.IsPublic, c.MaxMembers, rules, tags, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert community: %w", err)
		}
		_, err = h.exec(ctx,
			"INSERT INTO community_members (community_id, user_id, is_moderator, joined_at) VALUES (?, ?, ?, ?)",
			c.ID, userID, true, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetCommunity(ctx, c.ID)
}

// GetCommunity loads a community with its creator, members and moderators.
func (s *Store) GetCommunity(ctx context.Context, id string) (*models.Community, error) {
	return getCommunity(ctx, s.handle, id)
}

func getCommunity(ctx context.Context, h handle, id string) (*models.Community, error) {
	c, err := scanCommunity(h.queryRow(ctx, "SELECT "+communityColumns+" FROM communities c WHERE c.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCommunityNotFound
	}
	if err != nil {
		return nil, err
	}
	list := []models.Community{*c}
	if err := loadMembers(ctx, h, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// ListCommunities returns a page of public communities, newest first.
func (s *Store) ListCommunities(ctx context.Context, f models.CommunityFilter) (*models.CommunityPage, error) {
	where := []string{"c.is_public = ?"}
	args := []any{true}
	if f.Category != "" {
		where = append(where, "c.category = ?")
		args = append(args, f.Category)
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		where = append(where, "(LOWER(c.name) LIKE ? OR LOWER(c.description) LIKE ?)")
		args = append(args, likePattern(q), likePattern(q))
	}
	clause := " WHERE " + strings.Join(where, " AND ")
	page, limit, offset := pageBounds(f.Page, f.Limit, 12)

	var total int
	if err := s.queryRow(ctx, "SELECT COUNT(*) FROM communities c"+clause, args...).Scan(&total); err != nil {
		return nil, err
	}

	rows, err := s.query(ctx,
		"SELECT "+communityColumns+" FROM communities c"+clause+" ORDER BY c.created_at DESC, c.id ASC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	list, err := scanCommunities(rows)
	if err != nil {
		return nil, err
	}
	if err := loadMembers(ctx, s.handle, list); err != nil {
		return nil, err
	}
	return &models.CommunityPage{Communities: list, Total: total, Page: page, Limit: limit}, nil
}

// ListUserCommunities returns every community userID belongs to, newest first.
func (s *Store) ListUserCommunities(ctx context.Context, userID string) ([]models.Community, error) {
	rows, err := s.query(ctx, `
		SELECT `+communityColumns+`
		FROM communities c
		JOIN community_members m ON m.community_id = c.id
		WHERE m.user_id = ?
		ORDER BY c.created_at DESC, c.id ASC`, userID)
	if err != nil {
		return nil, err
	}
	list, err := scanCommunities(rows)
	if err != nil {
		return nil, err
	}
	if err := loadMembers(ctx, s.handle, list); err != nil {
		return nil, err
	}
	return list, nil
}

func scanCommunities(rows *sql.Rows) ([]models.Community, error) {
	defer rows.Close()
	list := []models.Community{}
	for rows.Next() {
		c, err := scanCommunity(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

// loadMembers fills Creator, Members and Moderators for list in one query.
func loadMembers(ctx context.Context, h handle, list []models.Community) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]any, len(list))
	index := make(map[string]int, len(list))
	for i, c := range list {
		ids[i] = c.ID
		index[c.ID] = i
	}

	rows, err := h.query(ctx, `
		SELECT m.community_id, m.user_id, u.name, m.is_moderator
		FROM community_members m LEFT JOIN users u ON u.id = m.user_id
		WHERE m.community_id IN (`+placeholders(len(ids))+`)
		ORDER BY m.joined_at ASC, m.user_id ASC`, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var communityID, userID string
		var name sql.NullString
		var moderator bool
		if err := rows.Scan(&communityID, &userID, &name, &moderator); err != nil {
			return err
		}
		c := &list[index[communityID]]
		ref := models.UserRef{ID: userID, Name: name.String}
		c.Members = append(c.Members, ref)
		if moderator {
			c.Moderators = append(c.Moderators, ref)
		}
		if userID == c.CreatedBy {
			c.Creator = &models.UserRef{ID: userID, Name: name.String}
		}
	}
	return rows.Err()
}

// JoinCommunity adds userID as a member.
func (s *Store) JoinCommunity(ctx context.Context, communityID, userID string) error {
	return s.withTx(ctx, func(h handle) error {
		var maxMembers int
		err := h.queryRow(ctx, "SELECT max_members FROM communities WHERE id = ?", communityID).Scan(&maxMembers)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCommunityNotFound
		}
		if err != nil {
			return err
		}

		member, err := isMember(ctx, h, communityID, userID)
		if err != nil {
			return err
		}
		if member {
			return ErrAlreadyMember
		}

		var count int
		if err := h.queryRow(ctx, "SELECT COUNT(*) FROM community_members WHERE community_id = ?", communityID).Scan(&count); err != nil {
			return err
		}
		if count >= maxMembers {
			return ErrCommunityFull
		}

		_, err = h.exec(ctx,
			"INSERT INTO community_members (community_id, user_id, is_moderator, joined_at) VALUES (?, ?, ?, ?)",
			communityID, userID, false, s.now())
		if isUniqueViolation(err) {
			return ErrAlreadyMember
		}
		return err
	})
}

// LeaveCommunity removes userID from a community. When the creator leaves,
// ownership passes to the longest-standing remaining moderator; with no
// moderator left the community is deleted and deleted is true.
func (s *Store) LeaveCommunity(ctx context.Context, communityID, userID string) (deleted bool, err error) {
	err = s.withTx(ctx, func(h handle) error {
		var createdBy string
		err := h.queryRow(ctx, "SELECT created_by FROM communities WHERE id = ?", communityID).Scan(&createdBy)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCommunityNotFound
		}
		if err != nil {
			return err
		}

		res, err := h.exec(ctx, "DELETE FROM community_members WHERE community_id = ? AND user_id = ?", communityID, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotMember
		}
		if createdBy != userID {
			return nil
		}

		var next string
		err = h.queryRow(ctx, `
			SELECT user_id FROM community_members
			WHERE community_id = ? AND is_moderator = ?
			ORDER BY joined_at ASC, user_id ASC
			LIMIT 1`, communityID, true).Scan(&next)
		switch {
		case err == nil:
			_, err = h.exec(ctx, "UPDATE communities SET created_by = ? WHERE id = ?", next, communityID)
			return err
		case errors.Is(err, sql.ErrNoRows):
			if _, err := h.exec(ctx, "DELETE FROM community_members WHERE community_id = ?", communityID); err != nil {
				return err
			}
			if _, err := h.exec(ctx, "DELETE FROM communities WHERE id = ?", communityID); err != nil {
				return err
			}
			deleted = true
			return nil
		default:
			return err
		}
	})
	return deleted, err
}

// IsMember reports whether userID belongs to the community.
func (s *Store) IsMember(ctx context.Context, communityID, userID string) (bool, error) {
	var exists int
	err := s.queryRow(ctx, "SELECT COUNT(*) FROM communities WHERE id = ?", communityID).Scan(&exists)
	if err != nil {
		return false, err
	}
	if exists == 0 {
		return false, ErrCommunityNotFound
	}
	return isMember(ctx, s.handle, communityID, userID)
}

func isMember(ctx context.Context, h handle, communityID, userID string) (bool, error) {
	var n int
	err := h.queryRow(ctx,
		"SELECT COUNT(*) FROM community_members WHERE community_id = ? AND user_id = ?", communityID, userID).Scan(&n)
	return n > 0, err
}

// MemberIDs returns the user ids of every member of a community.
func (s *Store) MemberIDs(ctx context.Context, communityID string) ([]string, error) {
	rows, err := s.query(ctx, "SELECT user_id FROM community_members WHERE community_id = ?", communityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
