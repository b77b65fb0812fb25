package user

type UserIDDTO struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

type UpdateStatusDTO struct {
	UserID string `json:"userId" validate:"required,uuid"`
	Status string `json:"status" validate:"required,oneof=ACTIVE SUSPENDED"`
}

type UpdateRoleDTO struct {
	UserID string `json:"userId" validate:"required,uuid"`
	Role   string `json:"role" validate:"required,oneof=ADMIN CAMPUS_PASTOR LEADER"`
}
