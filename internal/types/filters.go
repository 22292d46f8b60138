package types

// MediaFilters - фильтры списка медиа пользователя (GET /media/user/me)
type MediaFilters struct {
	Type       string `form:"type" validate:"omitempty,is-media-type"`
	Usage      string `form:"usage" validate:"omitempty,is-upload-usage"`
	EntityType string `form:"entity_type"`
	EntityID   string `form:"entity_id"`
	IsPublic   *bool  `form:"is_public"`
	Limit      int    `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset     int    `form:"offset" validate:"omitempty,min=0"`
}

// ApplicationFilters - фильтр заявок для списка и авто-скрининга
type ApplicationFilters struct {
	JobPostingID string `json:"job_posting_id" form:"job_posting_id" validate:"omitempty,uuid"`
	Status       string `json:"status" form:"status" validate:"omitempty,is-application-status"`
	// OwnerID ограничивает выборку вакансиями владельца; ставится сервером
	OwnerID string `json:"-" form:"-"`
	Limit   int    `json:"limit" form:"limit" validate:"omitempty,min=1,max=500"`
	Offset  int    `json:"offset" form:"offset" validate:"omitempty,min=0"`
}
