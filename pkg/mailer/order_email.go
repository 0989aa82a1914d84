package mailer

// OrderEmail is the data shared by every order template. Amounts are preformatted.
type OrderEmail struct {
	CustomerName string
	Reference    string
	Items        []OrderEmailItem
	Subtotal     string
	Discount     string
	Total        string
	Reason       string
}

type OrderEmailItem struct {
	Name      string
	Quantity  int
	StartsOn  string
	EndsOn    string
	LineTotal string
}
