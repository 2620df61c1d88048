package brdoc

// ValidPhone reports whether the input is a Brazilian mobile number:
// exactly 11 digits (2-digit area code + 9-digit number) after stripping
// punctuation.
func ValidPhone(raw string) bool {
	return len(OnlyDigits(raw)) == 11
}

// FormatPhone masks an 11-digit mobile number as (##) #####-####.
// Inputs that are not 11 digits are returned unchanged.
func FormatPhone(raw string) string {
	digits := OnlyDigits(raw)
	if len(digits) != 11 {
		return raw
	}
	return "(" + digits[0:2] + ") " + digits[2:7] + "-" + digits[7:11]
}
