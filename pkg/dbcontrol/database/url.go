package database

import (
	"fmt"
	"strings"

	"dbcontrol/pkg/dbcontrol/config"
	"dbcontrol/pkg/dbcontrol/util/exception"
)

// URLScheme は接続 URL のスキームです。同じ .env を共有する他サービスの形式に合わせています。
const URLScheme = "mysql+pymysql"

// URLParts は接続 URL を分解した結果です。
type URLParts struct {
	Scheme   string
	User     string
	Password string
	Host     string
	Port     string
	Database string
}

// Addr は host[:port] を返します。
func (p URLParts) Addr() string {
	if p.Port == "" {
		return p.Host
	}
	return p.Host + ":" + p.Port
}

// hasPort は URL にポートを含めるかを判定します。
// 環境変数が文字列 "None" になっているケースも未設定として扱います。
func hasPort(port string) bool {
	return port != "" && port != "None"
}

// BuildURL は <scheme>://<user>:<password>@<host>[:<port>]/<database> 形式の接続 URL を組み立てます。
// 各値のエスケープは行いません。
func BuildURL(s config.ConnectionSettings) string {
	hostPart := s.Host
	if hasPort(s.Port) {
		hostPart = fmt.Sprintf("%s:%s", s.Host, s.Port)
	}
	return fmt.Sprintf("%s://%s:%s@%s/%s", URLScheme, s.User, s.Password, hostPart, s.Name)
}

// ParseURL は BuildURL が生成した形式の URL を分解します。
// パスワードやデータベース名に '@' を含められるよう、後ろに '/' が続く最後の '@' をホストとの区切りとして扱います。
func ParseURL(rawURL string) (URLParts, error) {
	var p URLParts

	scheme, rest, ok := strings.Cut(rawURL, "://")
	if !ok || scheme == "" {
		return p, invalidURL(rawURL, "スキームがありません")
	}
	p.Scheme = scheme

	at := credentialsEnd(rest)
	if at < 0 {
		return p, invalidURL(rawURL, "認証情報がありません")
	}
	userInfo, hostAndDB := rest[:at], rest[at+1:]
	p.User, p.Password, _ = strings.Cut(userInfo, ":")

	hostPort, db, ok := strings.Cut(hostAndDB, "/")
	if !ok {
		return p, invalidURL(rawURL, "データベース名の区切りがありません")
	}
	p.Database = db

	if i := strings.LastIndex(hostPort, ":"); i >= 0 && !strings.HasSuffix(hostPort, "]") {
		p.Host, p.Port = hostPort[:i], hostPort[i+1:]
	} else {
		p.Host = hostPort
	}
	if !hasPort(p.Port) {
		p.Port = ""
	}
	return p, nil
}

// credentialsEnd は認証情報とホストを区切る '@' の位置を返します。
// '/' が後ろに続かない '@' はデータベース名の一部とみなします。
func credentialsEnd(rest string) int {
	last := -1
	for at := strings.LastIndex(rest, "@"); at >= 0; at = strings.LastIndex(rest[:at], "@") {
		if strings.Contains(rest[at+1:], "/") {
			return at
		}
		last = at
	}
	return last
}

// MaskURL はパスワード部分を *** に置き換えた URL を返します。ログ出力用です。
func MaskURL(rawURL string) string {
	p, err := ParseURL(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	return fmt.Sprintf("%s://%s:***@%s/%s", p.Scheme, p.User, p.Addr(), p.Database)
}

func invalidURL(rawURL, reason string) error {
	return exception.NewConfigurationError(exception.KindInvalidURL,
		fmt.Sprintf("接続 URL を解釈できません (%s): %s", reason, maskLoose(rawURL)), nil)
}

// maskLoose は解釈できない URL でも最後の '@' より前の認証情報を伏せて返します。
func maskLoose(rawURL string) string {
	end := strings.LastIndex(rawURL, "@")
	if end < 0 {
		return rawURL
	}
	if start := strings.Index(rawURL, "://"); start >= 0 && start+3 <= end {
		return rawURL[:start+3] + "***" + rawURL[end:]
	}
	return "***" + rawURL[end:]
}
