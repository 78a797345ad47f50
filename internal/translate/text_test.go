package translate

import "testing"

func TestToText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text",
			in:   "新型ドローン発表",
			want: "新型ドローン発表",
		},
		{
			name: "structure",
			in: `<div class="entry-content">
				<h2>概要</h2>
				<p>新型<b>ドローン</b>を<a href="https://drone.jp/p">発表</a>。<img src="x.jpg"></p>
				<ul>
					<li>重量 250g</li>
					<li>飛行時間 30分</li>
				</ul>
			</div>`,
			want: "## 概要\n\n新型ドローンを[発表](https://drone.jp/p)。\n\n* 重量 250g\n* 飛行時間 30分",
		},
		{
			name: "line breaks and whitespace",
			in:   "<p>一行目<br>二行目   です</p>\n\n\n<p>次の段落</p>",
			want: "一行目\n二行目 です\n\n次の段落",
		},
		{
			name: "anchor without href and image link",
			in:   `<p><a>名前</a> <a href="https://drone.jp/i"><img src="i.jpg"></a> <a href="#top">上へ</a></p>`,
			want: "名前 上へ",
		},
		{
			name: "non-web links keep their text",
			in:   `<p><a href="/news/1">関連</a>と<a href="mailto:info@drone.jp">連絡</a>、<a href="javascript:void(0)">開く</a></p>`,
			want: "関連と連絡、開く",
		},
		{
			name: "h4 level",
			in:   "<h4>仕様</h4>",
			want: "#### 仕様",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ToText(c.in); got != c.want {
				t.Errorf("ToText() = %q, want %q", got, c.want)
			}
		})
	}
}
