package classify

import (
	"fmt"
	"strings"

	"github.com/lysyi3m/complaint-comb/app/taxonomy"
)

func buildPrompt(tx *taxonomy.Taxonomy, batch string) string {
	var categories strings.Builder
	for _, category := range tx.Categories() {
		fmt.Fprintf(&categories, "- %s\n", category)
	}

	var reasons strings.Builder
	for i, reason := range tx.Reasons() {
		fmt.Fprintf(&reasons, "%d. %s\n", i+1, reason)
	}

	return fmt.Sprintf(`Vestel ürünleriyle ilgili müşteri şikayetlerini sınıflandıran bir uzmansın.

Aşağıda her satırı ayrı bir JSON nesnesi olan şikayet kayıtları var. Her kaydın başlığını ve metnini oku, şikayetin hangi ürünle ilgili olduğunu (category) ve şikayetin nedenini (reason) belirle.

ŞİKAYETLER:
%s

ÜRÜN KATEGORİLERİ:
%s
ŞİKAYET NEDENLERİ:
%s
KURALLAR:
- category alanı yalnızca ürün kategorileri listesinden bir değer olabilir
- reason alanı yalnızca yukarıdaki %d nedenden biri olabilir
- her complaint_id için tam olarak bir satır yaz
- açıklama, başlık veya kod bloğu ekleme

ÇIKTI BİÇİMİ (her satırda bir JSON nesnesi):
{"complaint_id": 1, "category": "Televizyon", "reason": "Teknik Servis"}
{"complaint_id": 2, "category": "Buzdolabı", "reason": "İade & Değişim"}

CEVAP:`, strings.TrimSpace(batch), categories.String(), reasons.String(), len(tx.Reasons()))
}
