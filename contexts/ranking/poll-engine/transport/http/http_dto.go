package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StartPollRequest struct {
	CategoryID int64 `json:"category_id"`
}

type ThingResponse struct {
	ThingID   int64  `json:"thing_id"`
	Name      string `json:"name"`
	File      string `json:"file,omitempty"`
	CreatedAt string `json:"created_at"`
}

type CategoryResponse struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	CreatedAt  string `json:"created_at"`
}

type StartPollResponse struct {
	Category CategoryResponse `json:"category"`
	ThingA   ThingResponse    `json:"thing_a"`
	ThingB   ThingResponse    `json:"thing_b"`
}

type EndPollRequest struct {
	Preference string `json:"preference"`
}

type CreateCategoryRequest struct {
	Name string `json:"name"`
}

type CategoryListResponse struct {
	Items []CategoryResponse `json:"items"`
}

type CreateThingRequest struct {
	Name string `json:"name"`
	File string `json:"file,omitempty"`
}

type ThingListResponse struct {
	Items  []ThingResponse `json:"items"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type CreateRankRequest struct {
	ThingID    int64 `json:"thing_id"`
	CategoryID int64 `json:"category_id"`
}

type RankResponse struct {
	RankID     int64   `json:"rank_id"`
	ThingID    int64   `json:"thing_id"`
	CategoryID int64   `json:"category_id"`
	Score      float64 `json:"score"`
	Run        int64   `json:"run"`
}

type RankedThingResponse struct {
	Position int           `json:"position"`
	RankID   int64         `json:"rank_id"`
	Score    float64       `json:"score"`
	Thing    ThingResponse `json:"thing"`
}

type CategoryStatisticsResponse struct {
	Category CategoryResponse      `json:"category"`
	Items    []RankedThingResponse `json:"items"`
}
