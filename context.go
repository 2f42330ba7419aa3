package tca

import "time"

// VisibilityAspect tells which otherwise hidden records a caller may see.
type VisibilityAspect struct {
	IncludeHiddenPages      bool `json:"includeHiddenPages"`
	IncludeHiddenContent    bool `json:"includeHiddenContent"`
	IncludeDeletedRecords   bool `json:"includeDeletedRecords"`
	// IncludeScheduledRecords lifts the start and end time restrictions.
	IncludeScheduledRecords bool `json:"includeScheduledRecords"`
}

// IncludesHidden answers hidden pages for the pages table and hidden content otherwise.
func (v VisibilityAspect) IncludesHidden(table string) bool {
	if table == "pages" {
		return v.IncludeHiddenPages
	}
	return v.IncludeHiddenContent
}

// UserAspect is the frontend user on whose behalf records are read.
type UserAspect struct {
	IsLoggedIn bool  `json:"isLoggedIn"`
	GroupIDs   []int `json:"groupIds"`
}

// Pseudo group ids every frontend request carries.
const (
	GroupHideAtLogin = -1
	GroupAnyLogin    = -2
)

// NewAnonymousUser returns the aspect of a visitor that is not logged in.
func NewAnonymousUser() *UserAspect {
	return &UserAspect{GroupIDs: []int{0, GroupHideAtLogin}}
}

// NewLoggedInUser returns the aspect of a logged in user member of groups.
func NewLoggedInUser(groups ...int) *UserAspect {
	ids := append([]int{0, GroupAnyLogin}, groups...)
	return &UserAspect{IsLoggedIn: true, GroupIDs: ids}
}

// WorkspaceAspect selects the workspace, 0 is live.
type WorkspaceAspect struct {
	ID int `json:"id"`
}

func (w WorkspaceAspect) IsLive() bool { return w.ID == 0 }

// Context carries everything restriction evaluation reads about the caller.
// AccessTime is the only notion of "now" and must be set by the caller.
type Context struct {
	AccessTime time.Time        `json:"accessTime"`
	Visibility VisibilityAspect `json:"visibility"`
	User       *UserAspect      `json:"user,omitempty"`
	Workspace  WorkspaceAspect  `json:"workspace"`
}

func NewContext(accessTime time.Time) *Context {
	return &Context{AccessTime: accessTime}
}

func (c *Context) clone() *Context {
	if c == nil {
		return &Context{}
	}
	copied := *c
	if c.User != nil {
		user := *c.User
		user.GroupIDs = append([]int(nil), c.User.GroupIDs...)
		copied.User = &user
	}
	return &copied
}

func (c *Context) WithAccessTime(t time.Time) *Context {
	copied := c.clone()
	copied.AccessTime = t
	return copied
}

func (c *Context) WithUser(user *UserAspect) *Context {
	copied := c.clone()
	copied.User = user
	return copied
}

func (c *Context) WithVisibility(visibility VisibilityAspect) *Context {
	copied := c.clone()
	copied.Visibility = visibility
	return copied
}

func (c *Context) WithWorkspace(id int) *Context {
	copied := c.clone()
	copied.Workspace = WorkspaceAspect{ID: id}
	return copied
}

// HasAccessTime reports whether AccessTime was set.
func (c *Context) HasAccessTime() bool {
	return c != nil && !c.AccessTime.IsZero()
}

// AccessTimestamp returns AccessTime as unix seconds, the unit of time columns.
func (c *Context) AccessTimestamp() int64 {
	return c.AccessTime.Unix()
}

// GroupIDs returns the user's group ids, or nil when no user aspect is present.
func (c *Context) GroupIDs() []int {
	if c == nil || c.User == nil {
		return nil
	}
	return c.User.GroupIDs
}
