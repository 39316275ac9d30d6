package fourchan

import "encoding/json"

// Board describes one entry in the remote board directory. The remote sends
// ws_board as an integer flag; boardsResponse converts it, and responses we
// serve carry it as a bool under the same key.
type Board struct {
	Code     string `json:"board"`
	Title    string `json:"title"`
	Worksafe bool   `json:"ws_board"`
}

// boardsResponse models the remote boards.json payload. ws_board arrives as
// an integer flag.
type boardsResponse struct {
	Boards []struct {
		Board   string `json:"board"`
		Title   string `json:"title"`
		WsBoard int    `json:"ws_board"`
	} `json:"boards"`
}

// CatalogThread is one thread summary from a board catalog. Raw preserves the
// full remote object so callers can serve it unchanged; the typed fields are
// the subset filtering and prefetching need.
type CatalogThread struct {
	No      int64  `json:"no"`
	Subject string `json:"sub"`
	Comment string `json:"com"`
	Tim     int64  `json:"tim"`

	Raw json.RawMessage `json:"-"`
}

// catalogPage models one page of the remote catalog.json payload.
type catalogPage struct {
	Page    int               `json:"page"`
	Threads []json.RawMessage `json:"threads"`
}

// Post is a single post within a thread.
type Post struct {
	No      int64  `json:"no"`
	Subject string `json:"sub"`
	Comment string `json:"com"`
	Tim     int64  `json:"tim"`
	Ext     string `json:"ext"`
}

// Thread is a full thread payload. Raw preserves the remote JSON byte-for-byte
// so the metadata cache round-trips it exactly.
type Thread struct {
	Posts []Post
	Raw   json.RawMessage
}

// Title returns the subject of the opening post, or a placeholder when the
// thread has no subject.
func (t *Thread) Title() string {
	if t == nil || len(t.Posts) == 0 || t.Posts[0].Subject == "" {
		return "No Subject"
	}
	return t.Posts[0].Subject
}

// ParseThread decodes a raw thread payload into its typed form.
func ParseThread(raw json.RawMessage) (*Thread, error) {
	var body struct {
		Posts []Post `json:"posts"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	return &Thread{Posts: body.Posts, Raw: raw}, nil
}
