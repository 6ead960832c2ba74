package domain

type JoinCommand struct {
	Username string `validate:"required,max=32,excludesall=/"`
	PhotoURL string `validate:"omitempty,url"`
}

type PostMessageCommand struct {
	ChatID string `validate:"required"`
	Text   string `validate:"required"`
}

type OpenDMCommand struct {
	Target string `validate:"required"`
}

type CreateChannelCommand struct {
	Name         string `validate:"required,max=64"`
	Participants []string
}

type SearchCommand struct {
	ChatID string
	Query  string `validate:"required"`
	Limit  int    `validate:"gte=0,lte=100"`
}
