package vnpay

import "golang.org/x/text/language"

// LocaleCode is the two-letter display-language code the gateway accepts
// in vnp_Locale.
type LocaleCode = string

const (
	LocaleCodeVN LocaleCode = "vn"
	LocaleCodeEN LocaleCode = "en"
)

var (
	// order must match localeMatcher below
	localeCodes   = []LocaleCode{LocaleCodeVN, LocaleCodeEN}
	localeMatcher = language.NewMatcher([]language.Tag{
		language.Vietnamese,
		language.English,
	})
)

func getLocaleCode(lang language.Tag) LocaleCode {
	_, i, _ := localeMatcher.Match(lang)
	return localeCodes[i]
}

type localizedMessage struct {
	vn string
	en string
}

func (m localizedMessage) text(code LocaleCode) string {
	if code == LocaleCodeEN {
		return m.en
	}
	return m.vn
}

var defaultFailureMessage = localizedMessage{
	vn: "Giao dịch thất bại",
	en: "Transaction failed",
}

// Payment result codes, delivered in vnp_ResponseCode on the return URL
// and IPN callbacks.
var paymentMessages = map[string]localizedMessage{
	"00": {vn: "Giao dịch thành công", en: "Transaction successful"},
	"07": {
		vn: "Trừ tiền thành công. Giao dịch bị nghi ngờ (liên quan tới lừa đảo, giao dịch bất thường)",
		en: "Money deducted successfully. Transaction suspected of fraud or abnormal activity",
	},
	"09": {
		vn: "Thẻ/Tài khoản của khách hàng chưa đăng ký dịch vụ InternetBanking tại ngân hàng",
		en: "Card/account is not registered for InternetBanking at the bank",
	},
	"10": {
		vn: "Khách hàng xác thực thông tin thẻ/tài khoản không đúng quá 3 lần",
		en: "Card/account information was authenticated incorrectly more than 3 times",
	},
	"11": {
		vn: "Đã hết hạn chờ thanh toán. Xin quý khách vui lòng thực hiện lại giao dịch",
		en: "The payment window has expired. Please retry the transaction",
	},
	"12": {vn: "Thẻ/Tài khoản của khách hàng bị khóa", en: "Card/account is locked"},
	"13": {
		vn: "Quý khách nhập sai mật khẩu xác thực giao dịch (OTP)",
		en: "Wrong transaction authentication password (OTP) entered",
	},
	"24": {vn: "Khách hàng hủy giao dịch", en: "Customer cancelled the transaction"},
	"51": {
		vn: "Tài khoản của quý khách không đủ số dư để thực hiện giao dịch",
		en: "Insufficient account balance for the transaction",
	},
	"65": {
		vn: "Tài khoản của quý khách đã vượt quá hạn mức giao dịch trong ngày",
		en: "Daily transaction limit exceeded",
	},
	"75": {vn: "Ngân hàng thanh toán đang bảo trì", en: "The paying bank is under maintenance"},
	"79": {
		vn: "Khách hàng nhập sai mật khẩu thanh toán quá số lần quy định",
		en: "Wrong payment password entered too many times",
	},
	"99": {vn: "Các lỗi khác", en: "Other errors"},
}

// Transaction-query result codes, delivered in vnp_ResponseCode on querydr
// responses. Distinct table from the payment codes above.
var transactionMessages = map[string]localizedMessage{
	"00": {vn: "Yêu cầu thành công", en: "Request successful"},
	"02": {vn: "Mã định danh kết nối không hợp lệ", en: "Invalid terminal code"},
	"03": {vn: "Dữ liệu gửi sang không đúng định dạng", en: "Malformed request data"},
	"91": {vn: "Không tìm thấy giao dịch yêu cầu", en: "Requested transaction not found"},
	"94": {vn: "Yêu cầu trùng lặp trong thời gian giới hạn", en: "Duplicate request within the allowed window"},
	"97": {vn: "Chữ ký không hợp lệ", en: "Invalid checksum"},
	"99": {vn: "Các lỗi khác", en: "Other errors"},
}

// Refund result codes.
var refundMessages = map[string]localizedMessage{
	"00": {vn: "Yêu cầu thành công", en: "Request successful"},
	"02": {vn: "Mã định danh kết nối không hợp lệ", en: "Invalid terminal code"},
	"03": {vn: "Dữ liệu gửi sang không đúng định dạng", en: "Malformed request data"},
	"91": {vn: "Không tìm thấy giao dịch yêu cầu hoàn trả", en: "Refund target transaction not found"},
	"93": {
		vn: "Số tiền hoàn trả không hợp lệ. Số tiền hoàn trả phải nhỏ hơn hoặc bằng số tiền thanh toán",
		en: "Invalid refund amount. It must not exceed the original payment amount",
	},
	"94": {vn: "Yêu cầu trùng lặp trong thời gian giới hạn", en: "Duplicate request within the allowed window"},
	"95": {
		vn: "Giao dịch này không thành công bên VNPAY. VNPAY từ chối xử lý yêu cầu",
		en: "Transaction did not succeed at VNPAY. Refund request refused",
	},
	"97": {vn: "Chữ ký không hợp lệ", en: "Invalid checksum"},
	"98": {vn: "Timeout", en: "Timeout"},
	"99": {vn: "Các lỗi khác", en: "Other errors"},
}

func lookupPaymentMessage(responseCode string, lang language.Tag) string {
	return lookupMessage(paymentMessages, responseCode, lang)
}

func lookupTransactionMessage(responseCode string, lang language.Tag) string {
	return lookupMessage(transactionMessages, responseCode, lang)
}

func lookupRefundMessage(responseCode string, lang language.Tag) string {
	return lookupMessage(refundMessages, responseCode, lang)
}

func lookupMessage(table map[string]localizedMessage, responseCode string, lang language.Tag) string {
	msg, ok := table[responseCode]
	if !ok {
		msg = defaultFailureMessage
	}
	return msg.text(getLocaleCode(lang))
}
