package notify

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.BrazilianPortuguese

	message.SetString(lang, "receipt.subject", "Recibo de pagamento - %s")
	message.SetString(lang, "receipt.greeting", "Olá, %s!")
	message.SetString(lang, "receipt.body", "Recebemos o seu pagamento de %s em %s (%s) referente à viagem %s.")
	message.SetString(lang, "receipt.installment", "Parcela %d de %d.")
	message.SetString(lang, "receipt.balance", "Saldo a pagar: %s.")
	message.SetString(lang, "receipt.settled", "Seu pacote está quitado. Boa viagem!")
	message.SetString(lang, "receipt.attachment", "O recibo segue em anexo.")

	message.SetString(lang, "reminder.subject", "Parcela %d de %d vence em %s")
	message.SetString(lang, "reminder.body", "Olá, %s! A parcela %d de %d da viagem %s, no valor de %s, vence em %s.")
	message.SetString(lang, "reminder.overdue", "Olá, %s! A parcela %d de %d da viagem %s, no valor de %s, venceu em %s.")

	message.SetString(lang, "alert.contract_form", "Nova ficha de contrato: %s (%d acompanhante(s)) para %s.")
	message.SetString(lang, "alert.contact", "Novo contato de %s <%s>: %s")
	message.SetString(lang, "alert.payment", "Pagamento de %s registrado para %s (%s).")

	message.SetString(lang, "signature", "Atenciosamente,\n%s")
	message.SetString(lang, "contact_line", "Contato: %s")
}
