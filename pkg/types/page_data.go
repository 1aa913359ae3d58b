package types

type NavbarData struct {
	IsAuthenticated bool
	UserID          string
	UserEmail       string
	UserName        string
	AvatarURL       string
}

type NavbarDataSetter interface {
	SetNavbarData(data NavbarData)
}

// Flash is a one-time message rendered at the top of a page.
type Flash struct {
	Level   string
	Message string
}

type FlashAdder interface {
	AddFlashes(flashes ...Flash)
}

type BasePageData struct {
	Title   string
	Navbar  NavbarData
	Flashes []Flash
}

func (d *BasePageData) SetNavbarData(data NavbarData) {
	d.Navbar = data
}

func (d *BasePageData) AddFlashes(flashes ...Flash) {
	d.Flashes = append(d.Flashes, flashes...)
}

// ViewState describes the fetch behind a list or detail page. ViewID lets
// forms on the page address the mounted view.
type ViewState struct {
	ViewID  string
	Loading bool
	Failed  bool
	Error   string
}

type HomePageData struct {
	BasePageData
	ViewState
	Foods []*Food
}

type FoodsPageData struct {
	BasePageData
	ViewState
	Foods []*Food
	Query string
}

type FoodDetailPageData struct {
	BasePageData
	ViewState
	Food        *Food
	NotFound    bool
	IsOwner     bool
	CanRequest  bool
	Requests    []*Request
	RequestForm RequestInput
	FieldErrors map[string]string
}

// FoodForm is the add and update food form.
type FoodForm struct {
	Name           string `form:"name"`
	QuantityText   string `form:"quantity_text"`
	PickupLocation string `form:"pickup_location"`
	ExpireDate     string `form:"expire_date"`
	Notes          string `form:"notes"`
	ImageURL       string `form:"image_url"`
}

type FoodFormPageData struct {
	BasePageData
	FoodID      string
	Action      string
	SubmitLabel string
	Form        FoodForm
	Error       string
	FieldErrors map[string]string
}

type MyFoodsPageData struct {
	BasePageData
	ViewState
	Foods []*Food
}

type MyRequestsPageData struct {
	BasePageData
	ViewState
	Requests []*Request
}

type LoginPageData struct {
	BasePageData
	Message       string
	Error         string
	Email         string
	GoogleEnabled bool
}

type RegisterPageData struct {
	BasePageData
	DisplayName   string
	PhotoURL      string
	Email         string
	Error         string
	FieldErrors   map[string]string
	GoogleEnabled bool
}

type ConfirmRegisterPageData struct {
	BasePageData
	Email   string
	Error   string
	Message string
}

type ResetPasswordPageData struct {
	BasePageData
	Email   string
	Error   string
	Message string
}
