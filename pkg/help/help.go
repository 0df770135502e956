// Package help holds the reference text shown by "cobral help" and the
// shell's .ajuda command.
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/thomasrohde/cobral/pkg/evaluator"
	"github.com/thomasrohde/cobral/pkg/stdlib"
)

// TopicList is the display order of the help topics.
var TopicList = []string{"sintaxe", "tipos", "controle", "funcoes", "bibliotecas", "entrada", "importe", "diagnosticos", "exemplos"}

// QUICKREF is the summary shown by "cobral help" without a topic.
const QUICKREF = `Cobral: referência rápida

  declare x = 1;                variável
  declare constante LIMITE = 10; constante
  se (x > 0) { ... } senao { ... }
  enquanto (x < 10) { x++; }
  para (declare i = 0; i < 3; i++) { ... }
  escolha (x) { caso 1: ...; pare; padrao: ... }
  funcao soma(a, b) { retorne a + b; }
  importe "matematica";         biblioteca
  importe "util.cob";           arquivo

Tópicos: sintaxe, tipos, controle, funcoes, bibliotecas, entrada, importe,
diagnosticos, exemplos. Use "cobral help <tópico>".
`

// Topics maps each topic name to its text.
var Topics = map[string]string{
	"sintaxe": `Sintaxe

Instruções podem terminar com ';', que é opcional. Comentários usam // até
o fim da linha ou /* ... */.

  declare nome = expressão;
  declare constante NOME = expressão;
  nome = expressão;
  vetor[indice] = expressão;
  nome++; nome--; ++nome; --nome;

Operadores, do mais fraco ao mais forte:
  ou
  e
  ==  !=
  <  <=  >  >=
  +  -
  *  /  %
  -x  +x  nao x  ++x  --x
  x++  x--  chamada()  vetor[i]

Textos aceitam os escapes \"  \\  \n  \t.
`,
	"tipos": `Tipos

  inteiro    1, -42
  real       3.14, 2.0
  booleano   verdadeiro, falso
  texto      "olá"
  vetor      [1, "dois", [3]]
  nulo       resultado de instruções sem valor

Divisão entre inteiros trunca em direção a zero. Misturar inteiro e real
produz real. '+' com um texto concatena. Vetores são copiados na
atribuição e o índice começa em 0. "+x" é o valor absoluto.
`,
	"controle": `Controle de fluxo

  se (cond) { ... } senao se (cond) { ... } senao { ... }
  enquanto (cond) { ... }
  para (declare i = 0; i < n; i++) { ... }
  escolha (valor) {
    caso 1:
    caso 2:
      escrever("um ou dois");
      pare;
    padrao:
      escrever("outro");
  }

Condições devem ser booleanas. Um caso sem 'pare' continua no próximo.
A variável do 'para' e as declaradas no corpo deixam de existir ao fim
do laço.
`,
	"funcoes": `Funções

  funcao fatorial(n) {
    se (n <= 1) { retorne 1; }
    retorne n * fatorial(n - 1);
  }

Uma função precisa ser declarada antes de ser chamada. O corpo enxerga
apenas os parâmetros e as constantes; variáveis globais não são visíveis.
Sem 'retorne' a função devolve 0.
`,
	"bibliotecas": `Bibliotecas

'io' está sempre disponível. As demais exigem importe:

  importe "matematica";   raiz, potencia, PI
  importe "conversao";    int, real
`,
	"entrada": `Entrada

  declare nome = ler("Qual é o seu nome?");

ler suspende o programa até que uma linha seja fornecida. Aspas ao redor
da resposta são removidas. Ctrl-C durante a leitura interrompe a execução.
`,
	"importe": `Importe

  importe "matematica";   carrega uma biblioteca
  importe "util.cob";     executa um arquivo e traz suas declarações

Arquivos são procurados primeiro na pasta do programa e depois nas pastas
de import_paths em .cobral.yaml ou passadas com -I. Importações circulares
são um erro.
`,
	"diagnosticos": `Diagnósticos

  E_LEX, E_PARSE        erros de escrita do programa
  E_UNKNOWN_FN          função desconhecida ou biblioteca não importada
  E_IMPORT              arquivo não encontrado ou importação circular
  E_TYPE, E_ARGS        tipos ou número de argumentos inválidos
  E_DIV_ZERO, E_INDEX   divisão por zero, índice fora do vetor
  E_BUDGET              limite de iterações excedido
  E_UNDEFINED           (check) identificador não declarado
  E_INCOMPATIBLE_CMP    (check) comparação entre tipos incompatíveis
  W_UNUSED              (check) declaração não usada

Códigos de saída: 0 sucesso, 2 erros no programa, 4 erro em execução,
130 execução interrompida.
`,
	"exemplos": `Exemplos

  importe "conversao";
  declare total = 0;
  para (declare i = 0; i < 3; i++) {
    total = total + int(ler("Número?"));
  }
  escrever("Total:", total);

  funcao maior(v) {
    declare m = v[0];
    para (declare i = 1; i < 3; i++) {
      se (v[i] > m) { m = v[i]; }
    }
    retorne m;
  }
`,
}

// MatchTopic resolves query to a topic by exact name, then by unique
// prefix. Unknown queries get a suggestion when one is close.
func MatchTopic(query string) (string, string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[query]; ok {
		return query, content, nil
	}

	var matches []string
	for _, name := range TopicList {
		if strings.HasPrefix(name, query) {
			matches = append(matches, name)
		}
	}
	if len(matches) == 1 && query != "" {
		return matches[0], Topics[matches[0]], nil
	}
	if len(matches) > 1 && query != "" {
		return "", "", fmt.Errorf("tópico ambíguo %q: %s", query, strings.Join(matches, ", "))
	}

	ranks := fuzzy.RankFindNormalizedFold(query, TopicList)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return "", "", fmt.Errorf("tópico desconhecido %q; você quis dizer %q?", query, ranks[0].Target)
	}
	return "", "", fmt.Errorf("tópico desconhecido %q", query)
}

// LibraryIndex lists every function of reg by library.
func LibraryIndex(reg *stdlib.Registry) string {
	var b strings.Builder
	total := 0
	for _, name := range reg.Names() {
		lib := reg.Get(name)
		if lib.Prelude {
			fmt.Fprintf(&b, "%s (sem importe)\n", name)
		} else {
			fmt.Fprintf(&b, "%s\n", name)
		}
		fns := append([]*evaluator.NativeFunc(nil), lib.Fns...)
		sort.Slice(fns, func(i, j int) bool { return fns[i].Name < fns[j].Name })
		for _, fn := range fns {
			fmt.Fprintf(&b, "  %s\n", signature(fn))
			total++
		}
	}
	fmt.Fprintf(&b, "Total: %d funções\n", total)
	return b.String()
}

func signature(fn *evaluator.NativeFunc) string {
	if fn.Arity == evaluator.Variadic {
		return fn.Name + "(...)"
	}
	params := make([]string, fn.Arity)
	for i := range params {
		params[i] = string(rune('a' + i))
	}
	return fn.Name + "(" + strings.Join(params, ", ") + ")"
}
