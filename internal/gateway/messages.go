package gateway

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cotafacil/cotabot/internal/matching"
	"github.com/cotafacil/cotabot/internal/session"
)

// Message templates for the customer channel. Portuguese is the default;
// English variants exist wherever the conversation flow is language-aware.

func FirstContactMenu() string {
	return `Oi! 👋 Sou o Bot da CotaFácil Alphaville. Eu faço sua simulação completa e já te devolvo cotação.

Você quer consórcio de:

1. 🚗 Carro

2. 🏠 Imóvel

3. 🔧 Serviços (reforma, placas solares etc.)

4. ❓ Não sei ainda`
}

func WelcomeMessage() string {
	return `Olá! 👋

Bem-vindo ao *CotaFácil Alphaville*!

Aqui você pode fazer cotações de consórcio de forma rápida e automática.

Por favor, me informe qual tipo de consórcio você deseja cotar:

1️⃣ *Consórcio de Automóvel*
2️⃣ *Consórcio de Imóvel*
3️⃣ *Consultoria/Outros*

Digite o número da opção ou descreva sua necessidade.`
}

func RequestVehicleData(lang session.Language) string {
	if lang == session.LangEnglish {
		return `🚗 *Vehicle Consortium*

To generate your quote I need:

1. *Vehicle value* (in R$)
2. *Desired term* (months: 24, 36, 48, 60, 72, 80)
3. *Full name*
4. *CPF*
5. *Date of birth*
6. *Email*

Please send it in this format:

Valor: R$ 50000
Prazo: 60 meses
Nome: João Silva
CPF: 123.456.789-00
Data Nascimento: 01/01/1990
Email: joao@email.com`
	}
	return `🚗 *Consórcio de Automóvel*

Para gerar sua cotação, preciso das seguintes informações:

1. *Valor do veículo* (em R$)
2. *Prazo desejado* (em meses: 24, 36, 48, 60, 72, 80)
3. *Nome completo*
4. *CPF*
5. *Data de nascimento*
6. *E-mail*

Por favor, envie as informações neste formato:

Valor: R$ 50000
Prazo: 60 meses
Nome: João Silva
CPF: 123.456.789-00
Data Nascimento: 01/01/1990
Email: joao@email.com`
}

func RequestPropertyData(lang session.Language) string {
	if lang == session.LangEnglish {
		return `🏠 *Property Consortium*

To generate your quote I need:

1. *Property value* (in R$)
2. *Desired term* (months: 80, 100, 120, 150, 180, 200)
3. *Full name*
4. *CPF*
5. *Date of birth*
6. *Email*

Please send it in this format:

Valor: R$ 300000
Prazo: 120 meses
Nome: Maria Silva
CPF: 123.456.789-00
Data Nascimento: 01/01/1990
Email: maria@email.com`
	}
	return `🏠 *Consórcio de Imóvel*

Para gerar sua cotação, preciso das seguintes informações:

1. *Valor do imóvel* (em R$)
2. *Prazo desejado* (em meses: 80, 100, 120, 150, 180, 200)
3. *Nome completo*
4. *CPF*
5. *Data de nascimento*
6. *E-mail*

Por favor, envie as informações neste formato:

Valor: R$ 300000
Prazo: 120 meses
Nome: Maria Silva
CPF: 123.456.789-00
Data Nascimento: 01/01/1990
Email: maria@email.com`
}

func ProcessingNotice(lang session.Language) string {
	if lang == session.LangEnglish {
		return "⏳ *Processing your quote...*\n\nThis may take a moment. Please wait... 🤖"
	}
	return "⏳ *Processando sua cotação...*\n\nEstou gerando sua cotação personalizada.\nIsso pode levar alguns instantes.\n\nPor favor, aguarde... 🤖"
}

func PleaseWaitNotice(lang session.Language) string {
	if lang == session.LangEnglish {
		return "⏳ Your quote is being processed. Please wait..."
	}
	return "⏳ Sua cotação está sendo processada. Por favor, aguarde..."
}

// RenderQuotation formats the matched plan, including the explanation block
// when the plan is only approximate.
func RenderQuotation(m *matching.Match, productType session.ProductType, lang session.Language) string {
	typeLabel := "Consórcio de Automóvel"
	if productType == session.ProductProperty {
		typeLabel = "Consórcio de Imóvel"
	}
	if lang == session.LangEnglish {
		typeLabel = "Vehicle Consortium"
		if productType == session.ProductProperty {
			typeLabel = "Property Consortium"
		}
	}

	var b strings.Builder
	if lang == session.LangEnglish {
		b.WriteString("✅ *Quote Generated!*\n\n📋 *Quote Details:*\n\n")
		fmt.Fprintf(&b, "*Type:* %s\n", typeLabel)
		fmt.Fprintf(&b, "*Asset Value:* R$ %s\n", formatBRL(m.Record.Value))
		fmt.Fprintf(&b, "*Term:* %d months\n", m.Record.TermMonths)
	} else {
		b.WriteString("✅ *Cotação Gerada com Sucesso!*\n\n📋 *Detalhes da Cotação:*\n\n")
		fmt.Fprintf(&b, "*Tipo:* %s\n", typeLabel)
		fmt.Fprintf(&b, "*Valor do Bem:* R$ %s\n", formatBRL(m.Record.Value))
		fmt.Fprintf(&b, "*Prazo:* %d meses\n", m.Record.TermMonths)
	}
	if m.Record.FirstInstallment > 0 {
		if lang == session.LangEnglish {
			fmt.Fprintf(&b, "*First Installment:* R$ %s\n", formatBRL(m.Record.FirstInstallment))
		} else {
			fmt.Fprintf(&b, "*1ª Parcela:* R$ %s\n", formatBRL(m.Record.FirstInstallment))
		}
	}
	if m.Record.PlanCode != "" {
		fmt.Fprintf(&b, "*Plano:* %s\n", m.Record.PlanCode)
	}
	if m.Record.SaleType != "" {
		fmt.Fprintf(&b, "*Tipo de Venda:* %s\n", m.Record.SaleType)
	}
	if m.Record.AssetName != "" {
		fmt.Fprintf(&b, "*Nome do Bem:* %s\n", m.Record.AssetName)
	}

	if !m.IsExactMatch {
		b.WriteString(renderApproximation(m, lang))
	}

	if lang == session.LangEnglish {
		b.WriteString("\n---\n\n*Like this quote?*\n\nTo *close the deal*, type: *FECHAR*\n\nNeed help? Type: *AJUDA*")
	} else {
		b.WriteString("\n---\n\n*Gostou da cotação?*\n\nPara *prosseguir com o fechamento*, digite: *FECHAR*\n\nPrecisa de ajuda? Digite: *AJUDA*")
	}
	return b.String()
}

func renderApproximation(m *matching.Match, lang session.Language) string {
	var b strings.Builder
	if lang == session.LangEnglish {
		b.WriteString("\n📌 *Note:*\nWe did not find a plan exactly matching your request; this is the closest plan available:\n\n")
	} else {
		b.WriteString("\n📌 *Observação:*\nNão encontramos um plano exatamente igual ao solicitado, mas selecionamos o plano mais próximo disponível:\n\n")
	}

	if m.ValueDelta > 0 {
		pct := (m.Record.Value - m.RequestedValue) / m.RequestedValue * 100
		if lang == session.LangEnglish {
			if pct > 0 {
				fmt.Fprintf(&b, "• Value: R$ %s (%.1f%% above the requested R$ %s)\n",
					formatBRL(m.Record.Value), pct, formatBRL(m.RequestedValue))
			} else {
				fmt.Fprintf(&b, "• Value: R$ %s (%.1f%% below the requested R$ %s)\n",
					formatBRL(m.Record.Value), -pct, formatBRL(m.RequestedValue))
			}
		} else {
			if pct > 0 {
				fmt.Fprintf(&b, "• Valor: R$ %s (%.1f%% acima do solicitado de R$ %s)\n",
					formatBRL(m.Record.Value), pct, formatBRL(m.RequestedValue))
			} else {
				fmt.Fprintf(&b, "• Valor: R$ %s (%.1f%% abaixo do solicitado de R$ %s)\n",
					formatBRL(m.Record.Value), -pct, formatBRL(m.RequestedValue))
			}
		}
	}
	if m.TermDelta > 0 {
		if lang == session.LangEnglish {
			if m.Record.TermMonths > m.RequestedTerm {
				fmt.Fprintf(&b, "• Term: %d months (%d months more than the %d requested)\n",
					m.Record.TermMonths, m.TermDelta, m.RequestedTerm)
			} else {
				fmt.Fprintf(&b, "• Term: %d months (%d months fewer than the %d requested)\n",
					m.Record.TermMonths, m.TermDelta, m.RequestedTerm)
			}
		} else {
			if m.Record.TermMonths > m.RequestedTerm {
				fmt.Fprintf(&b, "• Prazo: %d meses (%d meses a mais que os %d meses solicitados)\n",
					m.Record.TermMonths, m.TermDelta, m.RequestedTerm)
			} else {
				fmt.Fprintf(&b, "• Prazo: %d meses (%d meses a menos que os %d meses solicitados)\n",
					m.Record.TermMonths, m.TermDelta, m.RequestedTerm)
			}
		}
	}

	if lang == session.LangEnglish {
		b.WriteString("\nThis is the closest plan available in our system.\n")
	} else {
		b.WriteString("\nEste é o plano mais próximo disponível em nosso sistema.\n")
	}
	return b.String()
}

func HumanConfirmPrompt(lang session.Language) string {
	if lang == session.LangEnglish {
		return "Would you like to be connected to one of our specialized counselors?\n\nPlease reply *YES* or *NO*."
	}
	return "Gostaria de ser conectado a um de nossos consultores especializados?\n\nPor favor, responda *SIM* ou *NÃO*."
}

func HandoffConfirmation(lang session.Language) string {
	if lang == session.LangEnglish {
		return "👨‍💼 *Connecting you to a counselor*\n\nYour request was forwarded to one of our counselors. You will be contacted shortly.\n\nThank you! 😊"
	}
	return "👨‍💼 *Encaminhando para Atendimento Especializado*\n\nSua solicitação foi encaminhada para um de nossos consultores.\nEm breve você será contatado para dar continuidade ao atendimento.\n\nObrigado pela preferência! 😊"
}

func HandoffDeclined(lang session.Language) string {
	if lang == session.LangEnglish {
		return "No problem! I'm here to help. How can I assist you?"
	}
	return "Sem problema! Estou aqui para ajudar. Como posso ajudá-lo?"
}

func ConfirmClarification(lang session.Language) string {
	if lang == session.LangEnglish {
		return "🤔 I didn't understand your response.\n\nPlease reply with:\n• *YES* or *SIM* to connect to a counselor\n• *NO* or *NÃO* to continue with the bot"
	}
	return "🤔 Não entendi sua resposta.\n\nPor favor, responda com:\n• *SIM* para conectar com um consultor\n• *NÃO* para continuar com o bot"
}

func BotReactivated(lang session.Language) string {
	if lang == session.LangEnglish {
		return "🤖 Hello! I'm the bot and I'm here to help you. How can I assist you today?"
	}
	return "🤖 Olá! Eu sou o bot e estou aqui para ajudá-lo. Como posso ajudá-lo hoje?"
}

func GenericError(lang session.Language) string {
	if lang == session.LangEnglish {
		return "❌ *Oops! Something went wrong*\n\nSorry, an error occurred while processing your request.\n\nYou can try again, or type *MENU* to start over."
	}
	return "❌ *Ops! Algo deu errado*\n\nDesculpe, ocorreu um erro ao processar sua solicitação.\n\nVocê pode tentar novamente, ou digitar *MENU* para voltar ao início."
}

func CatalogUnavailable(lang session.Language) string {
	if lang == session.LangEnglish {
		return "❌ Oops! I couldn't generate your quote right now.\n\nYou can:\n• Try again by resending your data\n• Type *MENU* to start over\n• Type *AJUDA* if you need assistance"
	}
	return "❌ Ops! Ocorreu um erro ao gerar sua cotação.\n\nVocê pode:\n• Tentar novamente enviando os dados\n• Digitar *MENU* para começar de novo\n• Digitar *AJUDA* se precisar de assistência"
}

func VagueDataPrompt(productType session.ProductType, lang session.Language) string {
	example := "Valor: R$ 50000\nPrazo: 60 meses\nNome: João Silva\nCPF: 123.456.789-00\nData Nascimento: 01/01/1990\nEmail: joao@email.com"
	if productType == session.ProductProperty {
		example = "Valor: R$ 300000\nPrazo: 120 meses\nNome: Maria Silva\nCPF: 123.456.789-00\nData Nascimento: 01/01/1990\nEmail: maria@email.com"
	}
	if lang == session.LangEnglish {
		return "🤔 I couldn't fully understand your message.\n\nPlease send the data in the indicated format:\n\n" + example
	}
	return "🤔 Não consegui entender completamente sua mensagem.\n\nPor favor, envie os dados no formato indicado:\n\n" + example
}

func FormatProblemPrompt(problem string, lang session.Language) string {
	if lang == session.LangEnglish {
		return fmt.Sprintf("❌ %s\n\nPlease correct and send again in the indicated format.", problem)
	}
	return fmt.Sprintf("❌ %s\n\nPor favor, corrija e envie novamente no formato indicado.", problem)
}

func QuoteClarification(lang session.Language) string {
	if lang == session.LangEnglish {
		return "🤔 I understand you might be requesting a quote, but I need a bit more clarity.\n\nCould you please:\n• Specify if you want a quote for a car or property consortium\n• Or send the complete data in the format:\n\nValor: R$ 50000\nPrazo: 60 meses\nNome: João Silva\nCPF: 123.456.789-00\nData Nascimento: 01/01/1990\nEmail: joao@email.com"
	}
	return "🤔 Entendo que você pode estar solicitando uma cotação, mas preciso de um pouco mais de clareza.\n\nVocê poderia, por favor:\n• Especificar se deseja cotação de consórcio de carro ou imóvel\n• Ou enviar os dados completos no formato:\n\nValor: R$ 50000\nPrazo: 60 meses\nNome: João Silva\nCPF: 123.456.789-00\nData Nascimento: 01/01/1990\nEmail: joao@email.com"
}

func DontKnowYetMessage(lang session.Language) string {
	if lang == session.LangEnglish {
		return `🤔 No problem! I'm here to help you understand the different types of consortium we offer.

We have:
• *Car Consortium* - For purchasing vehicles
• *Property Consortium* - For purchasing real estate
• *Services Consortium* - For renovations, solar panels, and other services

Would you like to know more about any of these options? Or if you prefer, I can connect you with one of our consultants.`
	}
	return `🤔 Sem problema! Estou aqui para te ajudar a entender os diferentes tipos de consórcio que oferecemos.

Temos:
• *Consórcio de Carro* - Para compra de veículos
• *Consórcio de Imóvel* - Para compra de imóveis
• *Consórcio de Serviços* - Para reformas, placas solares e outros serviços

Gostaria de saber mais sobre alguma dessas opções? Ou se preferir, posso te conectar com um de nossos consultores.`
}

func OffHoursNotice(lang session.Language) string {
	if lang == session.LangEnglish {
		return "🕗 We are outside business hours (Mon-Fri 8:30-12:00). I can still run quotes for you, but our counselors will only follow up during business hours."
	}
	return "🕗 Estamos fora do horário de atendimento (seg-sex, 8:30-12:00). Posso gerar cotações normalmente, mas nossos consultores só darão continuidade no horário comercial."
}

func renderHandoffAlert(customerID, reason string, payload map[string]string) string {
	var b strings.Builder
	b.WriteString("🔔 *Novo Atendimento Humano Necessário*\n\n")
	fmt.Fprintf(&b, "*Motivo:* %s\n", reason)
	fmt.Fprintf(&b, "*Cliente:* %s\n", customerID)
	if len(payload) > 0 {
		b.WriteString("\n*Dados do Cliente:*\n")
		keys := make([]string, 0, len(payload))
		for k := range payload {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, payload[k])
		}
	}
	b.WriteString("\n---\nPor favor, entre em contato com o cliente.")
	return b.String()
}

// formatBRL renders a number in pt-BR currency style: 50000 -> "50.000,00".
func formatBRL(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	parts := strings.SplitN(s, ".", 2)
	intPart, decPart := parts[0], parts[1]

	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	out := b.String() + "," + decPart
	if neg {
		out = "-" + out
	}
	return out
}
