package env

type Args struct {
	Test    *bool
	Verbose *bool
	Bus     *string
	Serial  *string
}
