package catalog

import "github.com/explorrrr/boj-client/internal/query"

var generalNotes = []string{
	"以下の文字および全角文字は指定不可: < > ” ! | \\ ; '",
	"パラメータ名および値は大文字小文字を区別しません。",
	"複数パラメータの並び順は順不同です。",
}

var (
	formatCodes    = []string{"JSON", "CSV"}
	languageCodes  = []string{"JP", "EN"}
	frequencyCodes = []string{"CY", "FY", "CH", "FH", "Q", "M", "W", "D"}
)

// ─── Appendix A: databases ────────────────────────────────────────────────────

var databases = []Database{
	{Code: "IR01", CategoryJA: "金利（預金・貸出関連）", NameJA: "基準割引率および基準貸付利率（従来「公定歩合」として掲載されていたもの）の推移"},
	{Code: "IR02", CategoryJA: "金利（預金・貸出関連）", NameJA: "預金種類別店頭表示金利の平均年利率等"},
	{Code: "IR03", CategoryJA: "金利（預金・貸出関連）", NameJA: "定期預金の預入期間別平均金利"},
	{Code: "IR04", CategoryJA: "金利（預金・貸出関連）", NameJA: "貸出約定平均金利"},
	{Code: "FM01", CategoryJA: "マーケット関連", NameJA: "無担保コールＯ／Ｎ物レート（毎営業日）"},
	{Code: "FM02", CategoryJA: "マーケット関連", NameJA: "短期金融市場金利"},
	{Code: "FM03", CategoryJA: "マーケット関連", NameJA: "短期金融市場残高"},
	{Code: "FM04", CategoryJA: "マーケット関連", NameJA: "コール市場残高"},
	{Code: "FM05", CategoryJA: "マーケット関連", NameJA: "公社債発行・償還および現存額"},
	{Code: "FM06", CategoryJA: "マーケット関連", NameJA: "公社債消化状況（利付国債）"},
	{Code: "FM07", CategoryJA: "マーケット関連", NameJA: "(参考）国債窓口販売額・窓口販売率（2004年1月まで）"},
	{Code: "FM08", CategoryJA: "マーケット関連", NameJA: "外国為替市況"},
	{Code: "FM09", CategoryJA: "マーケット関連", NameJA: "実効為替レート"},
	{Code: "PS01", CategoryJA: "決済関連", NameJA: "各種決済"},
	{Code: "PS02", CategoryJA: "決済関連", NameJA: "フェイルの発生状況"},
	{Code: "MD01", CategoryJA: "預金・マネー・貸出", NameJA: "マネタリーベース"},
	{Code: "MD02", CategoryJA: "預金・マネー・貸出", NameJA: "マネーストック"},
	{Code: "MD03", CategoryJA: "預金・マネー・貸出", NameJA: "マネタリーサーベイ"},
	{Code: "MD04", CategoryJA: "預金・マネー・貸出", NameJA: "(参考) マネーサプライ (M2+CD) 増減と信用面の対応"},
	{Code: "MD05", CategoryJA: "預金・マネー・貸出", NameJA: "通貨流通高"},
	{Code: "MD06", CategoryJA: "預金・マネー・貸出", NameJA: "日銀当座預金増減要因と金融調節（実績）"},
	{Code: "MD07", CategoryJA: "預金・マネー・貸出", NameJA: "準備預金額"},
	{Code: "MD08", CategoryJA: "預金・マネー・貸出", NameJA: "業態別の日銀当座預金残高"},
	{Code: "MD09", CategoryJA: "預金・マネー・貸出", NameJA: "マネタリーベースと日本銀行の取引"},
	{Code: "MD10", CategoryJA: "預金・マネー・貸出", NameJA: "預金者別預金"},
	{Code: "MD11", CategoryJA: "預金・マネー・貸出", NameJA: "預金・現金・貸出金"},
	{Code: "MD12", CategoryJA: "預金・マネー・貸出", NameJA: "都道府県別預金・現金・貸出金"},
	{Code: "MD13", CategoryJA: "預金・マネー・貸出", NameJA: "貸出・預金動向"},
	{Code: "MD14", CategoryJA: "預金・マネー・貸出", NameJA: "定期預金の残高および新規受入高"},
	{Code: "LA01", CategoryJA: "預金・マネー・貸出", NameJA: "貸出先別貸出金"},
	{Code: "LA02", CategoryJA: "預金・マネー・貸出", NameJA: "日本銀行貸出"},
	{Code: "LA03", CategoryJA: "預金・マネー・貸出", NameJA: "その他貸出残高"},
	{Code: "LA04", CategoryJA: "預金・マネー・貸出", NameJA: "コミットメントライン契約額、利用額"},
	{Code: "LA05", CategoryJA: "預金・マネー・貸出", NameJA: "主要銀行貸出動向アンケート調査"},
	{Code: "BS01", CategoryJA: "金融機関バランスシート", NameJA: "日本銀行勘定"},
	{Code: "BS02", CategoryJA: "金融機関バランスシート", NameJA: "民間金融機関の資産・負債"},
	{Code: "FF", CategoryJA: "資金循環", NameJA: "資金循環"},
	{Code: "OB01", CategoryJA: "その他の日本銀行関連", NameJA: "日本銀行の対政府取引"},
	{Code: "OB02", CategoryJA: "その他の日本銀行関連", NameJA: "日本銀行が受入れている担保の残高"},
	{Code: "CO", CategoryJA: "短観", NameJA: "短観"},
	{Code: "PR01", CategoryJA: "物価", NameJA: "企業物価指数"},
	{Code: "PR02", CategoryJA: "物価", NameJA: "企業向けサービス価格指数"},
	{Code: "PR03", CategoryJA: "物価", NameJA: "製造業部門別投入・産出物価指数"},
	{Code: "PR04", CategoryJA: "物価", NameJA: "＜サテライト指数＞最終需要・中間需要物価指数"},
	{Code: "PF01", CategoryJA: "財政関連", NameJA: "財政資金収支"},
	{Code: "PF02", CategoryJA: "財政関連", NameJA: "政府債務"},
	{Code: "BP01", CategoryJA: "国際収支・BIS関連", NameJA: "国際収支統計"},
	{Code: "BIS", CategoryJA: "国際収支・BIS関連", NameJA: "BIS 国際資金取引統計および国際与信統計の日本分集計結果"},
	{Code: "DER", CategoryJA: "国際収支・BIS関連", NameJA: "デリバティブ取引に関する定例市場報告"},
	{Code: "OT", CategoryJA: "その他", NameJA: "その他"},
}

// ─── Parameter matrix ─────────────────────────────────────────────────────────

var parameters = []Parameter{
	{
		Name:          "FORMAT",
		DescriptionJA: "結果ファイル形式",
		AllowedValues: "JSON, CSV",
		Code:          Optional,
		Layer:         Optional,
		Metadata:      Optional,
		Notes:         []string{"エラー時は指定形式にかかわらずJSONでエラー内容を出力。"},
	},
	{
		Name:          "LANG",
		DescriptionJA: "言語",
		AllowedValues: "JP, EN",
		Code:          Optional,
		Layer:         Optional,
		Metadata:      Optional,
	},
	{
		Name:          "DB",
		DescriptionJA: "DB名",
		AllowedValues: "付録AのDBコード",
		Code:          Required,
		Layer:         Required,
		Metadata:      Required,
		Notes:         []string{"DB名は付録Aを参照。"},
	},
	{
		Name:          "CODE",
		DescriptionJA: "系列コード",
		AllowedValues: "系列コード（カンマ区切りで複数指定可、同じ期種のみ指定可）",
		Code:          Required,
		Layer:         Unsupported,
		Metadata:      Unsupported,
		Notes: []string{
			"データコード（先頭にDB名付き）は不可。",
			"上限は1250コード。",
		},
	},
	{
		Name:          "LAYER",
		DescriptionJA: "階層情報",
		AllowedValues: "階層1〜5をカンマ区切り、ワイルドカード * 指定可",
		Code:          Unsupported,
		Layer:         Required,
		Metadata:      Unsupported,
		Notes:         []string{"階層1は必須、階層2〜5は任意。"},
	},
	{
		Name:          "FREQUENCY",
		DescriptionJA: "期種",
		AllowedValues: "CY, FY, CH, FH, Q, M, W, D",
		Code:          Unsupported,
		Layer:         Required,
		Metadata:      Unsupported,
		Notes:         []string{"週次にはW0〜W6が存在するが指定時はWを利用。"},
	},
	{
		Name:          "STARTDATE",
		DescriptionJA: "開始期",
		AllowedValues: "CY/FY: YYYY, CH/FH: YYYYHH, Q: YYYYQQ, M/W/D: YYYYMM",
		Code:          Optional,
		Layer:         Optional,
		Metadata:      Unsupported,
		Notes:         []string{"開始期未指定時は収録開始期から出力。"},
	},
	{
		Name:          "ENDDATE",
		DescriptionJA: "終了期",
		AllowedValues: "STARTDATEと同形式",
		Code:          Optional,
		Layer:         Optional,
		Metadata:      Unsupported,
		Notes:         []string{"終了期未指定時は収録終了期まで出力。"},
	},
	{
		Name:          "STARTPOSITION",
		DescriptionJA: "検索開始位置",
		AllowedValues: "1以上の整数",
		Code:          Optional,
		Layer:         Optional,
		Metadata:      Unsupported,
		Notes:         []string{"上限超過時にNEXTPOSITIONと組み合わせて継続取得。"},
	},
}

// ─── Limits and layer rules ───────────────────────────────────────────────────

var limits = []Limit{
	{
		Scope:    query.EndpointLayer,
		Target:   "検索条件で抽出される系列数（期種絞り込み前）",
		Max:      1250,
		Overflow: "上限を超える場合はエラー。出力ファイルは作成されない。",
	},
	{
		Scope:    query.EndpointCode + "," + query.EndpointLayer,
		Target:   "1回のリクエストで検索可能な系列数",
		Max:      250,
		Overflow: "上限まで出力し、続き検索用にNEXTPOSITIONを出力。",
	},
	{
		Scope:    query.EndpointCode + "," + query.EndpointLayer,
		Target:   "1回のリクエストで検索可能なデータ数（系列数×期数）",
		Max:      60000,
		Overflow: "上限まで出力し、続き検索用にNEXTPOSITIONを出力。",
	},
}

var layerRules = []string{
	"階層1の指定は必須。",
	"階層2〜5は任意。",
	"複数階層はカンマ区切りで指定。",
	"* は当該階層を全件対象とするワイルドカード。",
}

// ─── Appendix B: messages ─────────────────────────────────────────────────────

var messages = []Message{
	{Status: 200, MessageID: "M181000I", Message: "正常に終了しました。", Note: "一部のデータが欠損値の場合も含む。"},
	{Status: 200, MessageID: "M181030I", Message: "正常に終了しましたが、該当データはありませんでした。", Note: "「該当データなし」は、指定系列・時期が全て収録期間外、または指定全系列が欠損値の場合。"},
	{Status: 400, MessageID: "M181001E", Message: "Invalid input parameters", Note: "一部の記号（`< > ” ! | \\ ; '`）や全角文字は利用不可。系列コード先頭にDB名を付けた場合（例: `IR01’MADR1Z@D`）も本メッセージ。"},
	{Status: 400, MessageID: "M181002E", Message: "Invalid language setting", Note: "言語設定が正しくありません。"},
	{Status: 400, MessageID: "M181003E", Message: "結果ファイル形式が正しくありません。", Note: "-"},
	{Status: 400, MessageID: "M181004E", Message: "DBが指定されていません。", Note: "-"},
	{Status: 400, MessageID: "M181005E", Message: "DB名が正しくありません。", Note: "-"},
	{Status: 400, MessageID: "M181006E", Message: "系列コードが指定されていません。", Note: "-"},
	{Status: 400, MessageID: "M181007E", Message: "系列コードの数が1250を超えています。", Note: "-"},
	{Status: 400, MessageID: "M181008E", Message: "指定した開始期が正しくありません。", Note: "-"},
	{Status: 400, MessageID: "M181009E", Message: "指定した終了期が正しくありません。", Note: "-"},
	{Status: 400, MessageID: "M181010E", Message: "時期は1850年から2050年までを数値で指定してください。", Note: "-"},
	{Status: 400, MessageID: "M181011E", Message: "開始期と終了期の順序を正しく指定してください。", Note: "開始期≦終了期で指定。"},
	{Status: 400, MessageID: "M181012E", Message: "検索開始位置が正しくありません。", Note: "1以上の整数を指定。指定方法は II.4.(2) を参照。"},
	{Status: 400, MessageID: "M181013E", Message: "指定した系列コードは存在しません。:*番目のコード", Note: "`*` は指定順を表示。"},
	{Status: 400, MessageID: "M181014E", Message: "指定した系列コードの期種が一致しません。:*番目のコード", Note: "`*` は指定順を表示。"},
	{Status: 400, MessageID: "M181015E", Message: "指定した開始期の設定形式が期種と一致しません。", Note: "-"},
	{Status: 400, MessageID: "M181016E", Message: "指定した終了期の設定形式が期種と一致しません。", Note: "-"},
	{Status: 400, MessageID: "M181017E", Message: "期種が指定されていません。", Note: "-"},
	{Status: 400, MessageID: "M181018E", Message: "期種が正しくありません。", Note: "-"},
	{Status: 400, MessageID: "M181019E", Message: "階層情報が指定されていません。", Note: "階層1は必須。階層2〜5は任意。6つ以上は指定不可。"},
	{Status: 400, MessageID: "M181020E", Message: "階層情報設定が正しくありません。", Note: "正しい指定方法は II.3.(3) を参照。"},
	{Status: 500, MessageID: "M181090S", Message: "予期しないエラーが発生しました。時間をおいてからやり直してください。", Note: "-"},
	{Status: 503, MessageID: "M181091S", Message: "データベースにアクセス中にエラーになりました。時間をおいてからやり直してください。", Note: "-"},
}
